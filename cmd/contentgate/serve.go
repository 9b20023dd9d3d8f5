package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/contentgate/bootstrap"
	"github.com/artpar/contentgate/config"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL API server",
	Long: `Start the contentgate server.

The server will:
  - Load configuration from contentgate.yaml (or --config)
  - Or load configuration from CONTENTGATE_* environment variables
  - Compile the content types in schema.dir
  - Serve /graphql, /schema.graphql, /health and /metrics

Send SIGHUP to recompile the schema without a restart.

Environment variables (for Docker deployments):
  CONTENTGATE_SCHEMA_DIR     - Schema directory (required)
  CONTENTGATE_STORE_DRIVER   - memory or sqlite (default: sqlite)
  CONTENTGATE_STORE_DSN      - Database path (default: contentgate.db)
  CONTENTGATE_SERVER_PORT    - Server port (default: 8080)
  CONTENTGATE_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  contentgate serve
  contentgate serve --config /etc/contentgate/config.yaml --watch

  # Docker (env vars only):
  CONTENTGATE_SCHEMA_DIR=/schemas contentgate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "recompile when schema files change")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found.")
		fmt.Fprintf(os.Stderr, "Create %s or set CONTENTGATE_SCHEMA_DIR.\n", cfgFile)
		return err
	}
	if serveWatch {
		cfg.Schema.Watch = true
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
