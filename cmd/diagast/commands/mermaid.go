package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/pkg/ast"
	"github.com/archsight/diagast/pkg/mermaid"
)

// mermaidCmd represents the mermaid command
var mermaidCmd = &cobra.Command{
	Use:   "mermaid <ast.json>",
	Short: "Render an AST as a Mermaid diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := ast.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading AST: %w", err)
		}

		fmt.Println(mermaid.Generate(a))
		return nil
	},
}
