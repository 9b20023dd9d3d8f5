package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/contentgate/config"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/sdl"
)

var (
	compileSchemaDir string
	compileOutput    string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the GraphQL SDL generated from the content types",
	Long: `Compile the content types into GraphQL SDL.

The SDL is written to stdout, or to --output. The schema directory comes
from --schema, else from the config file.

Examples:
  contentgate compile --schema ./schemas
  contentgate compile --schema ./schemas --output schema.graphql`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVar(&compileSchemaDir, "schema", "", "schema directory (overrides config)")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "write SDL to file instead of stdout")
}

func runCompile(cmd *cobra.Command, args []string) error {
	dir, err := schemaDir(compileSchemaDir)
	if err != nil {
		return err
	}

	set, err := schema.LoadDir(dir)
	if err != nil {
		return err
	}

	out, err := sdl.Compile(set)
	if err != nil {
		return err
	}

	if compileOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(compileOutput, []byte(out), 0644); err != nil {
		return fmt.Errorf("write sdl: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d types)\n", compileOutput, set.Len())
	return nil
}

// schemaDir resolves the schema directory from a flag or the config.
func schemaDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return "", fmt.Errorf("no --schema given: %w", err)
	}
	return cfg.Schema.Dir, nil
}
