package commands

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/pkg/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Extract structural rules from AST files",
	Long: `Derives protocol, zone, role and connectivity rules from .ast.json
files and writes rules.md reports.

Two modes:
  --folder DIR            process every page directory under an index folder
  --page ID --index DIR   re-extract one page and update _all.rules.md

With --refresh, pages whose diagram fingerprints still match their stored
rules.md are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		category, _ := cmd.Flags().GetString("category")
		if category == "" {
			category = cfg.RulesCategory
		}

		folder, _ := cmd.Flags().GetString("folder")
		pageID, _ := cmd.Flags().GetString("page")
		index, _ := cmd.Flags().GetString("index")

		switch {
		case folder != "":
			refresh, _ := cmd.Flags().GetBool("refresh")
			return runRulesBatch(folder, category, refresh)
		case pageID != "" && index != "":
			return runRulesPage(index, pageID, category)
		default:
			return fmt.Errorf("either --folder or both --page and --index are required")
		}
	},
}

func runRulesBatch(folder, category string, refresh bool) error {
	result, err := rules.BatchExtract(folder, category, refresh)
	if err != nil {
		return err
	}

	pageIDs := make([]string, 0, len(result.Pages))
	for id := range result.Pages {
		pageIDs = append(pageIDs, id)
	}
	sort.Strings(pageIDs)
	for _, id := range pageIDs {
		p := result.Pages[id]
		fmt.Printf("  %-30s %s (%d rules)\n", id, p.Status, p.RulesCount)
	}
	fmt.Printf("Extracted %d rules across %d pages\n", result.TotalRules, len(result.Pages))
	if result.AllRulesPath != "" {
		fmt.Printf("Consolidated: %s\n", result.AllRulesPath)
	}
	return nil
}

func runRulesPage(index, pageID, category string) error {
	pageDir := filepath.Join(index, pageID)
	ruleList := rules.ExtractFromPage(pageDir)

	rulesPath, err := rules.WriteRulesMD(ruleList, pageID, pageDir, category, "")
	if err != nil {
		return fmt.Errorf("writing rules.md: %w", err)
	}
	fmt.Printf("Wrote %s (%d rules)\n", rulesPath, len(ruleList))

	allPath, err := rules.UpdateAllRules(index, pageID, ruleList, category)
	if err != nil {
		return fmt.Errorf("updating consolidated rules: %w", err)
	}
	fmt.Printf("Updated %s\n", allPath)
	return nil
}

func init() {
	rulesCmd.Flags().String("folder", "", "Index folder containing page directories")
	rulesCmd.Flags().Bool("refresh", false, "Skip pages whose fingerprints are unchanged")
	rulesCmd.Flags().String("category", "", "Category written into report headers")
	rulesCmd.Flags().String("page", "", "Page ID to re-extract")
	rulesCmd.Flags().String("index", "", "Index folder for --page mode")
}
