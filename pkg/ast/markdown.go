package ast

import (
	"fmt"
	"sort"
	"strings"
)

// escapeCell escapes pipe characters so cell values cannot break table rows.
func escapeCell(text string) string {
	return strings.ReplaceAll(text, "|", `\|`)
}

// edgeDirection renders the arrow pair as one of both/forward/back/none.
func edgeDirection(e Edge) string {
	switch {
	case e.ArrowStart && e.ArrowEnd:
		return "both"
	case e.ArrowEnd:
		return "forward"
	case e.ArrowStart:
		return "back"
	}
	return "none"
}

// ToMarkdownTables renders an AST as markdown tables for embedding in a
// documentation page: heading, type/direction summary, color legend, and
// the Nodes/Edges/Groups tables.
func ToMarkdownTables(a *AST, sourceName string) string {
	var b strings.Builder

	if sourceName != "" {
		fmt.Fprintf(&b, "#### Diagram: %s\n\n", sourceName)
	} else {
		b.WriteString("#### Diagram\n\n")
	}
	fmt.Fprintf(&b, "**Type:** %s | **Direction:** %s\n\n", a.DiagramType, a.Direction)

	if legend := a.ColorLegend(); len(legend) > 0 {
		b.WriteString("**Color Legend:**\n")
		colors := make([]string, 0, len(legend))
		for c := range legend {
			colors = append(colors, c)
		}
		sort.Strings(colors)
		for _, c := range colors {
			fmt.Fprintf(&b, "- %s = %s\n", c, legend[c])
		}
		b.WriteString("\n")
	}

	if len(a.Nodes) > 0 {
		b.WriteString("##### Nodes\n\n")
		b.WriteString("| ID | Label | Role | Shape | Fill | Stroke | Group |\n")
		b.WriteString("|----|-------|------|-------|------|--------|-------|\n")
		for _, n := range a.Nodes {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				escapeCell(n.ID), escapeCell(n.Label), escapeCell(n.Role),
				escapeCell(string(n.Shape)), escapeCell(n.FillColor),
				escapeCell(n.StrokeColor), escapeCell(n.ParentGroup))
		}
		b.WriteString("\n")
	}

	if len(a.Edges) > 0 {
		b.WriteString("##### Edges\n\n")
		b.WriteString("| Source | Target | Label | Protocol | Style | Direction |\n")
		b.WriteString("|--------|--------|-------|----------|-------|-----------|\n")
		for _, e := range a.Edges {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				escapeCell(e.Source), escapeCell(e.Target), escapeCell(e.Label),
				escapeCell(e.Protocol), escapeCell(string(e.Style)), edgeDirection(e))
		}
		b.WriteString("\n")
	}

	if len(a.Groups) > 0 {
		b.WriteString("##### Groups\n\n")
		b.WriteString("| ID | Label | Zone Type | Children |\n")
		b.WriteString("|----|-------|-----------|----------|\n")
		for _, g := range a.Groups {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escapeCell(g.ID), escapeCell(g.Label), escapeCell(g.ZoneType),
				escapeCell(strings.Join(g.Children, ", ")))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
