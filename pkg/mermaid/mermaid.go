// Package mermaid renders a diagram AST as fenced Mermaid text. The
// AST is the primary artifact; Mermaid is a derived view for embedding
// in markdown and Confluence pages.
package mermaid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

// Mermaid keywords that cannot be used as node IDs.
var reserved = map[string]bool{
	"end": true, "graph": true, "flowchart": true, "subgraph": true,
	"direction": true, "click": true, "style": true, "classDef": true,
	"class": true,
}

var (
	nonAlnumRe    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscoresRe = regexp.MustCompile(`_+`)
	groupLabelRe  = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// makeSafeID derives a unique Mermaid-safe ID from a node label,
// falling back to the source cell ID for unlabeled nodes.
func makeSafeID(label string, used map[string]bool, cellID string) string {
	var base string
	if label == "" {
		suffix := cellID
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		if suffix == "" {
			base = "node_0"
		} else {
			base = "node_" + suffix
		}
	} else {
		base = nonAlnumRe.ReplaceAllString(label, "_")
		base = strings.Trim(underscoresRe.ReplaceAllString(base, "_"), "_")
		if len(base) > 20 {
			base = base[:20]
		}
		if base == "" || (base[0] >= '0' && base[0] <= '9') {
			base = "n_" + base
		}
	}
	if reserved[strings.ToLower(base)] {
		base += "_node"
	}

	final := base
	for counter := 1; used[final]; counter++ {
		final = fmt.Sprintf("%s_%d", base, counter)
	}
	used[final] = true
	return final
}

func formatNode(label, nodeID string, shape ast.Shape) string {
	switch shape {
	case ast.Stadium:
		return fmt.Sprintf(`%s(["%s"])`, nodeID, label)
	case ast.Database:
		return fmt.Sprintf(`%s[("%s")]`, nodeID, label)
	case ast.Diamond:
		return fmt.Sprintf(`%s{"%s"}`, nodeID, label)
	case ast.Circle:
		return fmt.Sprintf(`%s(("%s"))`, nodeID, label)
	case ast.Parallelogram:
		return fmt.Sprintf(`%s[/"%s"/]`, nodeID, label)
	case ast.Hexagon:
		return fmt.Sprintf(`%s{{"%s"}}`, nodeID, label)
	default:
		return fmt.Sprintf(`%s["%s"]`, nodeID, label)
	}
}

// arrow glyph by line style and which ends carry heads.
func formatEdge(sourceID, targetID string, e ast.Edge) string {
	var arrow string
	switch e.Style {
	case ast.Dashed, ast.Dotted:
		switch {
		case e.ArrowStart && e.ArrowEnd:
			arrow = "<-.->"
		case e.ArrowStart:
			arrow = "<-.-"
		case e.ArrowEnd:
			arrow = "-.->"
		default:
			arrow = "-.-"
		}
	case ast.Thick:
		switch {
		case e.ArrowStart && e.ArrowEnd:
			arrow = "<==>"
		case e.ArrowStart:
			arrow = "<=="
		case e.ArrowEnd:
			arrow = "==>"
		default:
			arrow = "==="
		}
	default:
		switch {
		case e.ArrowStart && e.ArrowEnd:
			arrow = "<-->"
		case e.ArrowStart:
			arrow = "<--"
		case e.ArrowEnd:
			arrow = "-->"
		default:
			arrow = "---"
		}
	}

	if e.Label != "" {
		return fmt.Sprintf(`    %s %s|"%s"| %s`, sourceID, arrow, e.Label, targetID)
	}
	return fmt.Sprintf("    %s %s %s", sourceID, arrow, targetID)
}

// Generate renders an AST as a fenced Mermaid block. Dispatch is a
// closed switch over the diagram type set.
func Generate(a *ast.AST) string {
	switch a.DiagramType {
	case ast.Sequence:
		return generateSequence(a)
	case ast.Class:
		return generateClass(a)
	case ast.State:
		return generateState(a)
	case ast.ER:
		return generateER(a)
	default:
		return generateFlowchart(a)
	}
}

func generateFlowchart(a *ast.AST) string {
	if len(a.Nodes) == 0 && len(a.Edges) == 0 {
		return "```mermaid\nflowchart TB\n    A[No diagram data extracted]\n```"
	}

	direction := a.Direction
	if direction == ast.TB {
		direction = ast.DetectDirection(a.Nodes)
	}
	lines := []string{"```mermaid", fmt.Sprintf("flowchart %s", direction)}

	used := map[string]bool{}
	idMap := map[string]string{}
	for _, n := range a.Nodes {
		idMap[n.ID] = makeSafeID(n.Label, used, n.ID)
	}

	grouped := map[string]bool{}
	for _, g := range a.Groups {
		for _, child := range g.Children {
			grouped[child] = true
		}
	}

	for _, g := range a.Groups {
		var children []ast.Node
		for _, n := range a.Nodes {
			if containsString(g.Children, n.ID) {
				children = append(children, n)
			}
		}
		if len(children) == 0 {
			continue
		}
		safeLabel := groupLabelRe.ReplaceAllString(g.Label, "_")
		lines = append(lines, fmt.Sprintf(`    subgraph %s["%s"]`, safeLabel, g.Label))
		for _, n := range children {
			lines = append(lines, "        "+formatNode(n.Label, idMap[n.ID], n.Shape))
		}
		lines = append(lines, "    end")
	}

	for _, n := range a.Nodes {
		if !grouped[n.ID] {
			lines = append(lines, "    "+formatNode(n.Label, idMap[n.ID], n.Shape))
		}
	}

	for _, e := range a.Edges {
		src, tgt := idMap[e.Source], idMap[e.Target]
		if src != "" && tgt != "" {
			lines = append(lines, formatEdge(src, tgt, e))
		}
	}

	for _, n := range a.Nodes {
		nid := idMap[n.ID]
		if nid == "" {
			continue
		}
		var parts []string
		if n.FillColor != "" {
			parts = append(parts, "fill:"+n.FillColor)
		}
		if n.StrokeColor != "" {
			parts = append(parts, "stroke:"+n.StrokeColor)
		}
		if n.FontColor != "" {
			parts = append(parts, "color:"+n.FontColor)
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("    style %s %s", nid, strings.Join(parts, ",")))
		}
	}

	for _, g := range a.Groups {
		safeLabel := groupLabelRe.ReplaceAllString(g.Label, "_")
		var parts []string
		if g.FillColor != "" {
			parts = append(parts, "fill:"+g.FillColor, "fill-opacity:0.15")
		}
		if g.Style == ast.Dashed {
			parts = append(parts, "stroke-dasharray:5 5")
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("    style %s %s", safeLabel, strings.Join(parts, ",")))
		}
	}

	edgeIdx := 0
	for _, e := range a.Edges {
		if idMap[e.Source] == "" || idMap[e.Target] == "" {
			continue
		}
		var parts []string
		if e.Color != "" {
			parts = append(parts, "stroke:"+e.Color)
		}
		if e.Style == ast.Dashed {
			parts = append(parts, "stroke-dasharray:5 5")
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("    linkStyle %d %s", edgeIdx, strings.Join(parts, ",")))
		}
		edgeIdx++
	}

	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

func generateSequence(a *ast.AST) string {
	lines := []string{"```mermaid", "sequenceDiagram"}

	for _, n := range a.Nodes {
		role, _ := n.Metadata["role"].(string)
		if role == "actor" {
			lines = append(lines, fmt.Sprintf("    actor %s as %s", n.ID, n.Label))
		} else {
			lines = append(lines, fmt.Sprintf("    participant %s as %s", n.ID, n.Label))
		}
	}

	for _, e := range a.Edges {
		arrow := "->>"
		if e.Style == ast.Dashed || e.Style == ast.Dotted {
			arrow = "-->>"
		}
		lines = append(lines, fmt.Sprintf("    %s%s%s: %s", e.Source, arrow, e.Target, e.Label))
	}

	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

func generateClass(a *ast.AST) string {
	lines := []string{"```mermaid", "classDiagram"}

	for _, n := range a.Nodes {
		lines = append(lines, fmt.Sprintf("    class %s {", n.ID))
		if stereotype, _ := n.Metadata["stereotype"].(string); stereotype != "" {
			lines = append(lines, fmt.Sprintf("        <<%s>>", stereotype))
		}
		for _, member := range stringSlice(n.Metadata["members"]) {
			lines = append(lines, "        "+member)
		}
		for _, method := range stringSlice(n.Metadata["methods"]) {
			lines = append(lines, "        "+method)
		}
		lines = append(lines, "    }")
	}

	relArrows := map[string]string{
		"extends":     "<|--",
		"implements":  "<|..",
		"composition": "*--",
		"aggregation": "o--",
		"dependency":  "<..",
		"association": "--",
	}
	for _, e := range a.Edges {
		relType, _ := e.Metadata["rel_type"].(string)
		arrow, ok := relArrows[relType]
		if !ok {
			arrow = "--"
		}
		line := fmt.Sprintf("    %s %s %s", e.Source, arrow, e.Target)
		if e.Label != "" {
			line += " : " + e.Label
		}
		lines = append(lines, line)
	}

	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

func generateState(a *ast.AST) string {
	lines := []string{"```mermaid", "stateDiagram-v2"}

	for _, n := range a.Nodes {
		if n.Label != "" && n.Label != "[*]" {
			lines = append(lines, fmt.Sprintf("    %s : %s", n.ID, n.Label))
		}
	}

	for _, e := range a.Edges {
		line := fmt.Sprintf("    %s --> %s", e.Source, e.Target)
		if e.Label != "" {
			line += " : " + e.Label
		}
		lines = append(lines, line)
	}

	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

func generateER(a *ast.AST) string {
	lines := []string{"```mermaid", "erDiagram"}

	for _, e := range a.Edges {
		label := e.Label
		lines = append(lines, fmt.Sprintf(`    %s ||--o{ %s : "%s"`, e.Source, e.Target, label))
	}

	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

// stringSlice tolerates both []string from in-process ASTs and []any
// from JSON-loaded ones.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
