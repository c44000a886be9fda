package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/archsight/diagast/internal/log"
)

// PageResult records what batch extraction did for one page.
type PageResult struct {
	Status     string `json:"status"`
	RulesCount int    `json:"rules_count"`
}

// BatchResult aggregates a whole index run.
type BatchResult struct {
	Index        string                `json:"index"`
	Category     string                `json:"category"`
	Pages        map[string]PageResult `json:"pages"`
	TotalRules   int                   `json:"total_rules"`
	AllRulesPath string                `json:"all_rules_path"`
}

func pageDirs(indexDir string) ([]string, error) {
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", indexDir, err)
	}
	var dirs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// BatchExtract runs rules extraction for every page directory under an
// index folder and rebuilds the consolidated file. With refreshOnly,
// pages whose page.md fingerprint still matches the one stored in their
// rules.md are skipped.
func BatchExtract(indexDir, category string, refreshOnly bool) (*BatchResult, error) {
	logger := log.Default()

	if category == "" {
		category = filepath.Base(filepath.Clean(indexDir))
	}

	dirs, err := pageDirs(indexDir)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Index:    indexDir,
		Category: category,
		Pages:    map[string]PageResult{},
	}

	for _, pageID := range dirs {
		pageDir := filepath.Join(indexDir, pageID)
		pageMD := filepath.Join(pageDir, "page.md")
		if _, err := os.Stat(pageMD); err != nil {
			continue
		}

		if refreshOnly {
			rulesMD := filepath.Join(pageDir, "rules.md")
			if stored := StoredFingerprint(rulesMD); stored != "" && stored == Fingerprint(pageMD) {
				logger.Info("page current, skipping", "page", pageID)
				result.Pages[pageID] = PageResult{Status: "current"}
				continue
			}
		}

		pageRules := ExtractFromPage(pageDir)
		if _, err := WriteRulesMD(pageRules, pageID, pageDir, category, pageMD); err != nil {
			return nil, err
		}
		logger.Info("rules extracted", "page", pageID, "count", len(pageRules))

		result.Pages[pageID] = PageResult{Status: "extracted", RulesCount: len(pageRules)}
		result.TotalRules += len(pageRules)
	}

	allPath, err := RebuildAllRules(indexDir, category)
	if err != nil {
		return nil, err
	}
	result.AllRulesPath = allPath
	logger.Info("consolidated rules rebuilt", "path", allPath, "total", result.TotalRules)

	return result, nil
}

// RebuildAllRules regenerates _all.rules.md from every per-page
// rules.md under the index directory.
func RebuildAllRules(indexDir, category string) (string, error) {
	dirs, err := pageDirs(indexDir)
	if err != nil {
		return "", err
	}

	var all []Rule
	for _, pageID := range dirs {
		rulesMD := filepath.Join(indexDir, pageID, "rules.md")
		if _, err := os.Stat(rulesMD); err != nil {
			continue
		}
		pageRules, err := ParsePageRules(rulesMD, pageID)
		if err != nil {
			log.Default().Warn("skipping unreadable rules file", "path", rulesMD, "error", err)
			continue
		}
		all = append(all, pageRules...)
	}

	return writeAllRules(indexDir, category, DedupKeepSevere(all))
}
