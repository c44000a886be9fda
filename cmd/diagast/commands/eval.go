package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/pkg/astcheck"
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <ast.json>",
	Short: "Run the quality gate over an AST",
	Long: `Runs deterministic structural checks over an .ast.json file: schema
conformance, leftover generic labels, edge validity, duplicate edges,
empty graphs and orphan nodes. With --partial it also verifies the
extracted backbone survived later repair. Exits nonzero when any
error-level check fails; warnings alone pass.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partial, _ := cmd.Flags().GetString("partial")

		result, err := astcheck.Evaluate(args[0], partial)
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			fmt.Print(result.Render())
		}

		if !result.Passed {
			return fmt.Errorf("quality gate failed: %d error(s)", result.TotalErrors)
		}
		return nil
	},
}

func init() {
	evalCmd.Flags().StringP("partial", "p", "", "Partial .ast.json for the drift check")
	evalCmd.Flags().BoolP("json", "j", false, "Output results as JSON")
}
