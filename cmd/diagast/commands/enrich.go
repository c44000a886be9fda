package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/pkg/ast"
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich <ast.json>",
	Short: "Re-run enrichment on an existing AST",
	Long: `Loads an .ast.json file, re-runs role/protocol/zone inference and
color-legend construction, and writes the result back (or to --output).
Enrichment is idempotent, so re-running it on an already enriched AST
is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := ast.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading AST: %w", err)
		}

		enriched := ast.Enrich(a)

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = args[0]
		}
		if err := ast.Save(enriched, output); err != nil {
			return fmt.Errorf("writing AST: %w", err)
		}

		fmt.Printf("Wrote %s\n", output)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringP("output", "o", "", "Output path; default overwrites the input")
}
