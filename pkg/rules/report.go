package rules

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/ast"
)

var timeNow = time.Now

const timeFormat = "2006-01-02 15:04"

// Fingerprint hashes the first 64KB of a file to a short hex token used
// for staleness checks. Missing files fingerprint as "unknown".
func Fingerprint(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	if len(data) > 65536 {
		data = data[:65536]
	}
	return fmt.Sprintf("%x", md5.Sum(data))[:12]
}

// ExtractFromPage derives rules from every .ast.json in a page
// directory and its attachments/ subdirectory. Unreadable AST files are
// skipped, not fatal.
func ExtractFromPage(pageDir string) []Rule {
	patterns := []string{
		filepath.Join(pageDir, "*.ast.json"),
		filepath.Join(pageDir, "attachments", "*.ast.json"),
	}

	var all []Rule
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		for _, path := range matches {
			a, err := ast.Load(path)
			if err != nil {
				log.Default().Warn("skipping unreadable AST", "path", path, "error", err)
				continue
			}
			all = append(all, Extract(a)...)
		}
	}
	return Dedup(all)
}

func ruleRow(id string, r Rule, withSource bool) string {
	if withSource {
		return fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s |",
			id, r.Name, r.Severity, r.Required, r.Keywords, r.Condition, r.ASTCondition, r.Source)
	}
	return fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |",
		id, r.Name, r.Severity, r.Required, r.Keywords, r.Condition, r.ASTCondition)
}

// WriteRulesMD writes the per-page rules.md and returns its path.
// sourcePath is the document the rules were derived alongside; its
// fingerprint is embedded for later staleness checks.
func WriteRulesMD(ruleList []Rule, pageID, pageDir, category, sourcePath string) (string, error) {
	if sourcePath == "" {
		sourcePath = filepath.Join(pageDir, "page.md")
	}

	lines := []string{
		fmt.Sprintf("# Rules - %s", pageID),
		"",
		fmt.Sprintf("> Source: %s | Extracted: %s | Model: deterministic | Category: %s | Fingerprint: %s",
			sourcePath, timeNow().Format(timeFormat), category, Fingerprint(sourcePath)),
		"",
	}

	if len(ruleList) == 0 {
		lines = append(lines, "_No structural rules derived from diagrams._")
	} else {
		lines = append(lines,
			"| ID | Rule | Sev | Req | Keywords | Condition | AST Condition |",
			"|----|------|-----|-----|----------|-----------|---------------|")
		for i, r := range ruleList {
			lines = append(lines, ruleRow(fmt.Sprintf("R-%03d", i+1), r, false))
		}
	}

	outPath := filepath.Join(pageDir, "rules.md")
	if err := os.WriteFile(outPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// parseRuleTable reads markdown rule tables back into Rule records.
// defaultSource is applied when the table has no Source column.
func parseRuleTable(content, defaultSource string) []Rule {
	var out []Rule
	inTable := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "| ID") || strings.HasPrefix(line, "|-") {
			inTable = true
			continue
		}
		if inTable && strings.HasPrefix(line, "|") {
			raw := strings.Split(line, "|")
			if len(raw) < 3 {
				continue
			}
			cols := make([]string, 0, len(raw)-2)
			for _, c := range raw[1 : len(raw)-1] {
				cols = append(cols, strings.TrimSpace(c))
			}
			if len(cols) < 7 {
				continue
			}
			r := Rule{
				Name:         cols[1],
				Severity:     cols[2],
				Required:     cols[3],
				Keywords:     cols[4],
				Condition:    cols[5],
				ASTCondition: cols[6],
				Source:       defaultSource,
			}
			if len(cols) > 7 {
				r.Source = cols[7]
			}
			out = append(out, r)
		} else if inTable {
			inTable = false
		}
	}
	return out
}

// ParsePageRules reads a per-page rules.md, tagging each rule with the
// page it came from.
func ParsePageRules(path, pageID string) ([]Rule, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseRuleTable(string(content), pageID), nil
}

func writeAllRules(indexDir, category string, merged []Rule) (string, error) {
	sourceCounts := map[string]int{}
	sevCounts := map[string]int{}
	for _, r := range merged {
		src := r.Source
		if src == "" {
			src = "unknown"
		}
		sourceCounts[src]++
		sevCounts[r.Severity]++
	}

	sources := make([]string, 0, len(sourceCounts))
	for src := range sourceCounts {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	lines := []string{
		fmt.Sprintf("# Consolidated Rules - %s", category),
		"",
		fmt.Sprintf("> Sources: %d documents | Extracted: %s | Model: deterministic | Category: %s",
			len(sourceCounts), timeNow().Format(timeFormat), category),
		">",
	}
	for _, src := range sources {
		lines = append(lines, fmt.Sprintf("> - %s/page.md (%d rules)", src, sourceCounts[src]))
	}
	lines = append(lines, "",
		"## Summary",
		"",
		"| Severity | Count |",
		"|----------|-------|",
		fmt.Sprintf("| Critical | %d |", sevCounts[SevCritical]),
		fmt.Sprintf("| High | %d |", sevCounts[SevHigh]),
		fmt.Sprintf("| Medium | %d |", sevCounts[SevMedium]),
		fmt.Sprintf("| Low | %d |", sevCounts[SevLow]),
		fmt.Sprintf("| **Total** | **%d** |", len(merged)),
		"",
		"## All Rules",
		"",
		"| ID | Rule | Sev | Req | Keywords | Condition | AST Condition | Source |",
		"|----|------|-----|-----|----------|-----------|---------------|--------|")
	for i, r := range merged {
		lines = append(lines, ruleRow(fmt.Sprintf("R-%03d", i+1), r, true))
	}
	lines = append(lines, "")

	outPath := filepath.Join(indexDir, "_all.rules.md")
	if err := os.WriteFile(outPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// UpdateAllRules merges one page's freshly extracted rules into the
// consolidated _all.rules.md, replacing that page's previous entries.
func UpdateAllRules(indexDir, pageID string, newRules []Rule, category string) (string, error) {
	allPath := filepath.Join(indexDir, "_all.rules.md")

	var existing []Rule
	if content, err := os.ReadFile(allPath); err == nil {
		existing = parseRuleTable(string(content), "")
	}

	merged := make([]Rule, 0, len(existing)+len(newRules))
	for _, r := range existing {
		if r.Source != pageID {
			merged = append(merged, r)
		}
	}
	for _, r := range newRules {
		r.Source = pageID
		merged = append(merged, r)
	}

	return writeAllRules(indexDir, category, DedupKeepSevere(merged))
}

var fingerprintRe = regexp.MustCompile(`Fingerprint:\s*([a-f0-9]{12})`)

// StoredFingerprint reads the fingerprint recorded in a rules.md header.
func StoredFingerprint(rulesPath string) string {
	content, err := os.ReadFile(rulesPath)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(content), "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		if m := fingerprintRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
