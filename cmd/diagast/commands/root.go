package commands

import (
	"github.com/spf13/cobra"

	"github.com/archsight/diagast/internal/config"
	"github.com/archsight/diagast/internal/log"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "diagast",
	Short: "diagast - Architecture diagram extraction and analysis",
	Long: `diagast converts architecture diagrams (Draw.io, SVG, PlantUML) into a
canonical AST, renders them for documentation, and derives structural rules.

Commands:
  convert     Convert one diagram file to .ast.json
  enrich      Re-run enrichment on an existing AST
  table       Render an AST as markdown tables
  mermaid     Render an AST as a Mermaid diagram
  eval        Run the quality gate over an AST
  rules       Extract structural rules from AST files
  batch       Convert every diagram under a directory
  init        Create a config file interactively

Use "diagast [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig loads layered configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		log.Default().SetLevel(log.DebugLevel)
	}
	if cfg.JSONLogs {
		log.Default().SetJSONOutput(true)
	}
	return cfg, nil
}

func init() {
	RootCmd.AddCommand(convertCmd)
	RootCmd.AddCommand(enrichCmd)
	RootCmd.AddCommand(tableCmd)
	RootCmd.AddCommand(mermaidCmd)
	RootCmd.AddCommand(evalCmd)
	RootCmd.AddCommand(rulesCmd)
	RootCmd.AddCommand(batchCmd)
}
