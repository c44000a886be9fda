// Package plantuml parses the PlantUML textual DSL into the canonical
// diagram AST. Four line-oriented sub-parsers cover the diagram families
// that matter for architecture documentation: component/deployment,
// class, sequence, and state. The family is chosen by content heuristics
// before parsing.
package plantuml

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/ast"
)

func skipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "'") || strings.HasPrefix(line, "@")
}

func edgeID(prefix string, n int) string {
	return fmt.Sprintf("%s_%d", prefix, n)
}

// kind is the PlantUML diagram family, which selects the sub-parser.
// Activity diagrams have no dedicated parser and reuse the component one.
type kind string

const (
	kindComponent kind = "component"
	kindClass     kind = "class"
	kindSequence  kind = "sequence"
	kindState     kind = "state"
	kindActivity  kind = "activity"
)

var (
	seqParticipantRe = regexp.MustCompile(`(?i)participant\s`)
	seqActorRe       = regexp.MustCompile(`(?i)actor\s+\w+\s`)
	seqMessageRe     = regexp.MustCompile(`(?i)\w+\s*-+>+\s*\w+\s*:`)
	classDefAnyRe    = regexp.MustCompile(`(?i)\bclass\s+\w+`)
	ifaceDefAnyRe    = regexp.MustCompile(`(?i)\binterface\s+\w+`)
	activityStepRe   = regexp.MustCompile(`:[\w\s]+;`)
)

// detectKind classifies PlantUML content. Sequence markers are checked
// first but yield to class/package keywords, since component diagrams
// also draw arrows between identifiers.
func detectKind(content string) kind {
	lower := strings.ToLower(content)

	seqHit := seqParticipantRe.MatchString(content) ||
		seqActorRe.MatchString(content) ||
		seqMessageRe.MatchString(content)
	if seqHit && !strings.Contains(lower, "class ") && !strings.Contains(lower, "package ") {
		return kindSequence
	}

	if classDefAnyRe.MatchString(content) || ifaceDefAnyRe.MatchString(content) {
		return kindClass
	}

	if strings.Contains(content, "[*] -->") || strings.Contains(lower, "state ") {
		return kindState
	}

	for _, kw := range []string{"package ", "component ", "node ", "folder ", "cloud ", "database "} {
		if strings.Contains(lower, kw) {
			return kindComponent
		}
	}

	if activityStepRe.MatchString(content) ||
		(strings.Contains(lower, "start") && strings.Contains(lower, "stop")) {
		return kindActivity
	}

	return kindComponent
}

// Convert parses a PlantUML block (without @startuml/@enduml wrappers)
// into an enriched AST. Content that matches no construct still yields a
// valid empty AST rather than an error.
func Convert(content string) *ast.AST {
	k := detectKind(content)

	var out *ast.AST
	switch k {
	case kindClass:
		out = parseClass(content).toAST()
	case kindSequence:
		out = parseSequence(content).toAST()
	case kindState:
		out = parseState(content).toAST()
	default:
		out = parseComponent(content).toAST()
	}

	log.Default().Debug("plantuml parsed",
		"kind", string(k), "nodes", len(out.Nodes), "edges", len(out.Edges))

	return ast.Enrich(out)
}

var (
	startRe = regexp.MustCompile(`(?i)@startuml\b[^\n]*\n?`)
	endRe   = regexp.MustCompile(`(?i)@enduml\b[^\n]*`)
)

// StripDirectives removes @startuml/@enduml wrapper lines.
func StripDirectives(content string) string {
	content = startRe.ReplaceAllString(content, "")
	content = endRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// ConvertFile reads a .puml file and converts its content.
func ConvertFile(path string) (*ast.AST, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	inner := StripDirectives(string(content))
	if inner == "" {
		return nil, fmt.Errorf("no plantuml content in %s", path)
	}
	out := Convert(inner)
	out.Metadata["source_file"] = path
	return out, nil
}

var (
	umlBlockRe    = regexp.MustCompile(`(?is)@startuml\b.*?\n(.*?)@enduml`)
	fencedBlockRe = regexp.MustCompile("(?is)```(?:plantuml|puml)\\s*\\n(.*?)```")
)

// ExtractBlocks pulls PlantUML blocks out of surrounding prose, both
// @startuml sections and fenced markdown code blocks.
func ExtractBlocks(text string) []string {
	var blocks []string
	for _, m := range umlBlockRe.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	return blocks
}
