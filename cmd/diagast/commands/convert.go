package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/pkg/ast"
	"github.com/archsight/diagast/pkg/extractor"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one diagram file to .ast.json",
	Long: `Converts a Draw.io, SVG, or PlantUML file into the canonical AST and
writes it next to the source (or to --output). Malformed diagram content
degrades to an AST carrying an error tag; the command only fails when no
AST could be produced at all.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("path is a directory, expected a file: %s", filePath)
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		formatFlag, _ := cmd.Flags().GetString("format")
		if formatFlag == "" {
			formatFlag = cfg.DefaultFormat
		}
		var forced extractor.Format
		if formatFlag != "" {
			forced, err = extractor.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
		}

		page, _ := cmd.Flags().GetInt("page")
		if !cmd.Flags().Changed("page") {
			page = cfg.DefaultPage
		}

		a, err := extractor.NewRegistry().Convert(filePath, forced, extractor.Options{PageIndex: page})
		if err != nil {
			return fmt.Errorf("converting %s: %w", filePath, err)
		}
		if a == nil {
			return fmt.Errorf("no diagram content could be extracted from %s", filePath)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ".ast.json"
		}
		if err := ast.Save(a, output); err != nil {
			return fmt.Errorf("writing AST: %w", err)
		}

		fmt.Printf("Wrote %s (%s, %d nodes, %d edges, %d groups)\n",
			output, a.DiagramType, len(a.Nodes), len(a.Edges), len(a.Groups))
		if a.HasError() {
			fmt.Printf("Warning: extraction degraded (%v)\n", a.Metadata["error"])
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringP("format", "f", "", "Source format (drawio, svg, plantuml); default auto-detect")
	convertCmd.Flags().IntP("page", "p", 0, "Draw.io page index")
	convertCmd.Flags().StringP("output", "o", "", "Output path for the .ast.json file")
}
