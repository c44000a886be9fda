package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/pkg/ast"
)

// tableCmd represents the table command
var tableCmd = &cobra.Command{
	Use:   "table <ast.json>",
	Short: "Render an AST as markdown tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := ast.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading AST: %w", err)
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(args[0])
		}

		fmt.Print(ast.ToMarkdownTables(a, name))
		return nil
	},
}

func init() {
	tableCmd.Flags().StringP("name", "n", "", "Source name shown in the heading; default is the file name")
}
