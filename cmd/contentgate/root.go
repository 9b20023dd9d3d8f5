package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contentgate",
	Short: "Schema-driven GraphQL content API",
	Long: `contentgate serves a GraphQL content API generated from YAML content
type definitions, with a draft/publish lifecycle.

Quick start:
  contentgate validate --schema ./schemas   # Check the content types
  contentgate compile --schema ./schemas    # Print the generated SDL
  contentgate serve                         # Start the API server`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "contentgate.yaml", "config file path")
}
