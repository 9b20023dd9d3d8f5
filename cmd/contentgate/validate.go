package main

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql/language/parser"
	"github.com/spf13/cobra"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/sdl"
)

var (
	validateSchemaDir string
	validateStrict    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate content types before deployment",
	Long: `Validate the content type definitions.

Checks:
  - YAML syntax and field definitions are valid
  - Type names are unique
  - Generated type names do not collide
  - The generated SDL parses
  - Type references resolve (warnings; errors with --strict)

Examples:
  contentgate validate --schema ./schemas
  contentgate validate --config /etc/contentgate/config.yaml --strict`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateSchemaDir, "schema", "", "schema directory (overrides config)")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat unresolved references as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir, err := schemaDir(validateSchemaDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Validating %s...\n\n", dir)

	set, err := schema.LoadDir(dir)
	if err != nil {
		fmt.Fprintf(out, "  %s Content types valid\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Content types valid (%d types, %d documents)\n", checkMark, set.Len(), len(set.Documents()))

	if err := compiles(set); err != nil {
		var collision *convention.CollisionError
		if errors.As(err, &collision) {
			fmt.Fprintf(out, "  %s Generated names unique\n", crossMark)
		} else {
			fmt.Fprintf(out, "  %s SDL compiles\n", crossMark)
		}
		return err
	}
	fmt.Fprintf(out, "  %s SDL compiles\n", checkMark)

	unresolved := set.Unresolved()
	if len(unresolved) == 0 {
		fmt.Fprintf(out, "  %s References resolve\n", checkMark)
		fmt.Fprintln(out, "\nSchema is valid.")
		return nil
	}

	mark := warnMark
	if validateStrict {
		mark = crossMark
	}
	fmt.Fprintf(out, "  %s References resolve\n", mark)
	for _, u := range unresolved {
		fmt.Fprintf(out, "      %s\n", u)
	}
	if validateStrict {
		return fmt.Errorf("%d unresolved references", len(unresolved))
	}
	fmt.Fprintln(out, "\nSchema is valid (unresolved references fall back to ID and JSON).")
	return nil
}

// compiles builds the SDL and parses it back.
func compiles(set *schema.Set) error {
	namer, err := convention.NewNamer(set)
	if err != nil {
		return err
	}
	source, err := sdl.CompileWith(set, namer)
	if err != nil {
		return err
	}
	if _, err := parser.Parse(parser.ParseParams{Source: source}); err != nil {
		return fmt.Errorf("generated sdl does not parse: %w", err)
	}
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)
