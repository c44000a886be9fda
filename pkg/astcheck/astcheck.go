// Package astcheck is the deterministic quality gate for .ast.json files.
// Every check is rule-based and reproducible: schema conformance, leftover
// generic labels, edge validity, duplicates, empty graphs, orphan nodes,
// and optional drift against the partial AST an extraction started from.
package astcheck

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/ast"
)

var genericLabelRe = regexp.MustCompile(`^[Nn]ode_\d+$`)

// Check is the outcome of a single named check.
type Check struct {
	Status string   `json:"status"`
	Level  string   `json:"level"`
	Issues []string `json:"issues"`
}

// Summary counts the headline numbers of an evaluated AST.
type Summary struct {
	Nodes                  int `json:"nodes"`
	Edges                  int `json:"edges"`
	Groups                 int `json:"groups"`
	GenericLabelsRemaining int `json:"generic_labels_remaining"`
	OrphanNodes            int `json:"orphan_nodes"`
}

// Result aggregates all check outcomes for one AST file. Passed is false
// only when an error-level check found issues; warnings never fail the gate.
type Result struct {
	File          string           `json:"file"`
	Checks        map[string]Check `json:"checks"`
	Passed        bool             `json:"passed"`
	TotalErrors   int              `json:"total_errors"`
	TotalWarnings int              `json:"total_warnings"`
	Summary       Summary          `json:"summary"`
}

// CheckOrder is the stable reporting order of check names.
var CheckOrder = []string{
	"schema", "generic_labels", "edge_validity",
	"duplicate_edges", "empty_graph", "orphan_nodes", "cv_drift",
}

func checkSchema(a *ast.AST) []string {
	var errs []string

	if a.Nodes == nil {
		errs = append(errs, "Missing or invalid 'nodes' (expected list)")
	}
	if a.Edges == nil {
		errs = append(errs, "Missing or invalid 'edges' (expected list)")
	}

	if a.DiagramType != "" {
		if _, err := ast.ParseDiagramType(string(a.DiagramType)); err != nil {
			errs = append(errs, fmt.Sprintf("Unknown diagram_type %q (expected one of [class er flowchart sequence state])", a.DiagramType))
		}
	}
	switch a.Direction {
	case "", ast.TB, ast.BT, ast.LR, ast.RL:
	default:
		errs = append(errs, fmt.Sprintf("Unknown direction %q (expected one of [BT LR RL TB])", a.Direction))
	}

	for i, n := range a.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Sprintf("nodes[%d]: missing 'id'", i))
		}
		shape := n.Shape
		if shape == "" {
			shape = ast.Rectangle
		}
		switch shape {
		case ast.Rectangle, ast.Stadium, ast.Database, ast.Diamond,
			ast.Circle, ast.Parallelogram, ast.Hexagon:
		default:
			errs = append(errs, fmt.Sprintf("nodes[%d] (%s): unknown shape %q", i, nodeRef(n), shape))
		}
	}

	for i, e := range a.Edges {
		if e.Source == "" {
			errs = append(errs, fmt.Sprintf("edges[%d] (%s): missing 'source'", i, edgeRef(e)))
		}
		if e.Target == "" {
			errs = append(errs, fmt.Sprintf("edges[%d] (%s): missing 'target'", i, edgeRef(e)))
		}
		style := e.Style
		if style == "" {
			style = ast.Solid
		}
		switch style {
		case ast.Solid, ast.Dashed, ast.Dotted, ast.Thick:
		default:
			errs = append(errs, fmt.Sprintf("edges[%d] (%s): unknown style %q", i, edgeRef(e), style))
		}
	}

	return errs
}

func nodeRef(n ast.Node) string {
	if n.ID == "" {
		return "?"
	}
	return n.ID
}

func edgeRef(e ast.Edge) string {
	if e.ID == "" {
		return "?"
	}
	return e.ID
}

func checkGenericLabels(a *ast.AST) []string {
	var issues []string
	for _, n := range a.Nodes {
		if genericLabelRe.MatchString(n.Label) {
			issues = append(issues, fmt.Sprintf(
				"Node '%s' has generic label '%s' — gap-fill did not replace it with text from the image",
				nodeRef(n), n.Label))
		} else if strings.TrimSpace(n.Label) == "" {
			issues = append(issues, fmt.Sprintf("Node '%s' has an empty label", nodeRef(n)))
		}
	}
	return issues
}

func checkOrphanNodes(a *ast.AST) []string {
	connected := map[string]bool{}
	for _, e := range a.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}
	groupChildren := map[string]bool{}
	for _, g := range a.Groups {
		for _, c := range g.Children {
			groupChildren[c] = true
		}
	}

	var orphans []string
	labels := map[string]string{}
	for _, n := range a.Nodes {
		if n.ID != "" && !connected[n.ID] {
			orphans = append(orphans, n.ID)
			labels[n.ID] = n.Label
		}
	}
	sort.Strings(orphans)

	var issues []string
	for _, oid := range orphans {
		label := labels[oid]
		if label == "" {
			label = oid
		}
		if groupChildren[oid] {
			issues = append(issues, fmt.Sprintf(
				"Node '%s' ('%s') is in a group but has no edges — verify in the image whether it connects to other nodes",
				oid, label))
		} else {
			issues = append(issues, fmt.Sprintf(
				"Node '%s' ('%s') is an orphan — no edges connect to or from it. Check the image for missing connections",
				oid, label))
		}
	}
	return issues
}

func checkEdgeValidity(a *ast.AST) []string {
	nodeIDs := map[string]bool{}
	for _, n := range a.Nodes {
		if n.ID != "" {
			nodeIDs[n.ID] = true
		}
	}
	var issues []string
	for _, e := range a.Edges {
		if e.Source != "" && !nodeIDs[e.Source] {
			issues = append(issues, fmt.Sprintf("Edge '%s': source '%s' does not match any node ID", edgeRef(e), e.Source))
		}
		if e.Target != "" && !nodeIDs[e.Target] {
			issues = append(issues, fmt.Sprintf("Edge '%s': target '%s' does not match any node ID", edgeRef(e), e.Target))
		}
		if e.Source == e.Target && e.Source != "" {
			issues = append(issues, fmt.Sprintf("Edge '%s': self-loop (source == target == '%s')", edgeRef(e), e.Source))
		}
	}
	return issues
}

func checkDuplicateEdges(a *ast.AST) []string {
	seen := map[[2]string]string{}
	var issues []string
	for _, e := range a.Edges {
		key := [2]string{e.Source, e.Target}
		if first, ok := seen[key]; ok {
			issues = append(issues, fmt.Sprintf(
				"Edge '%s' duplicates '%s' (both connect %s → %s)",
				edgeRef(e), first, key[0], key[1]))
		} else {
			seen[key] = edgeRef(e)
		}
	}
	return issues
}

func checkEmptyGraph(a *ast.AST) []string {
	if len(a.Nodes) == 0 && len(a.Edges) == 0 {
		return []string{"AST is empty — no nodes and no edges. Extraction failed entirely."}
	}
	if len(a.Nodes) == 0 {
		return []string{"AST has edges but no nodes."}
	}
	return nil
}

func checkDrift(final, partial *ast.AST) []string {
	var issues []string

	finalNodes := map[string]ast.Node{}
	for _, n := range final.Nodes {
		if n.ID != "" {
			finalNodes[n.ID] = n
		}
	}

	for _, p := range partial.Nodes {
		if p.ID == "" {
			continue
		}
		f, ok := finalNodes[p.ID]
		if !ok {
			issues = append(issues, fmt.Sprintf(
				"Extracted node '%s' ('%s') was removed during repair — the deterministic backbone should be preserved",
				p.ID, p.Label))
			continue
		}
		if (p.X != 0 || p.Y != 0) && (abs(f.X-p.X) > 5 || abs(f.Y-p.Y) > 5) {
			issues = append(issues, fmt.Sprintf(
				"Extracted node '%s': position shifted from (%g,%g) to (%g,%g) — repair should not move positioned nodes",
				p.ID, p.X, p.Y, f.X, f.Y))
		}
	}

	finalEdges := map[[2]string]bool{}
	for _, e := range final.Edges {
		finalEdges[[2]string{e.Source, e.Target}] = true
	}
	var removed [][2]string
	seen := map[[2]string]bool{}
	for _, e := range partial.Edges {
		key := [2]string{e.Source, e.Target}
		if !finalEdges[key] && !seen[key] {
			seen[key] = true
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		issues = append(issues, fmt.Sprintf(
			"Extracted edge %s → %s was removed during repair — the deterministic backbone should be preserved unless the edge is clearly wrong",
			key[0], key[1]))
	}

	return issues
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// EvaluateAST runs all checks against an in-memory AST. partial may be nil,
// in which case the drift check is skipped.
func EvaluateAST(a, partial *ast.AST) *Result {
	r := &Result{
		Checks: map[string]Check{},
		Passed: true,
	}

	errorChecks := []struct {
		name   string
		issues []string
	}{
		{"schema", checkSchema(a)},
		{"generic_labels", checkGenericLabels(a)},
		{"edge_validity", checkEdgeValidity(a)},
		{"duplicate_edges", checkDuplicateEdges(a)},
		{"empty_graph", checkEmptyGraph(a)},
	}

	warningChecks := []struct {
		name   string
		issues []string
	}{
		{"orphan_nodes", checkOrphanNodes(a)},
	}
	if partial != nil {
		warningChecks = append(warningChecks, struct {
			name   string
			issues []string
		}{"cv_drift", checkDrift(a, partial)})
	}

	for _, c := range errorChecks {
		status := "PASS"
		if len(c.issues) > 0 {
			status = "FAIL"
			r.Passed = false
			r.TotalErrors += len(c.issues)
		}
		r.Checks[c.name] = Check{Status: status, Level: "error", Issues: c.issues}
	}
	for _, c := range warningChecks {
		status := "PASS"
		if len(c.issues) > 0 {
			status = "WARN"
			r.TotalWarnings += len(c.issues)
		}
		r.Checks[c.name] = Check{Status: status, Level: "warning", Issues: c.issues}
	}

	r.Summary = Summary{
		Nodes:                  len(a.Nodes),
		Edges:                  len(a.Edges),
		Groups:                 len(a.Groups),
		GenericLabelsRemaining: len(r.Checks["generic_labels"].Issues),
		OrphanNodes:            len(r.Checks["orphan_nodes"].Issues),
	}
	return r
}

// Evaluate loads an .ast.json file and runs the quality gate against it.
// partialPath may be empty; if it is set but unreadable the drift check is
// skipped with a warning rather than failing the whole evaluation.
func Evaluate(astPath, partialPath string) (*Result, error) {
	a, err := ast.Load(astPath)
	if err != nil {
		return nil, fmt.Errorf("load ast: %w", err)
	}

	var partial *ast.AST
	if partialPath != "" {
		partial, err = ast.Load(partialPath)
		if err != nil {
			log.Default().Warn("partial AST unreadable, skipping drift check", "path", partialPath, "error", err)
			partial = nil
		}
	}

	r := EvaluateAST(a, partial)
	r.File = astPath
	return r, nil
}

// Render formats a Result for terminal output.
func (r *Result) Render() string {
	var b strings.Builder
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "  Eval: %s  |  %d nodes, %d edges, %d groups\n",
		status, r.Summary.Nodes, r.Summary.Edges, r.Summary.Groups)
	if r.TotalErrors > 0 {
		fmt.Fprintf(&b, "  Errors: %d\n", r.TotalErrors)
	}
	if r.TotalWarnings > 0 {
		fmt.Fprintf(&b, "  Warnings: %d\n", r.TotalWarnings)
	}
	for _, name := range CheckOrder {
		c, ok := r.Checks[name]
		if !ok || len(c.Issues) == 0 {
			continue
		}
		label := "ERROR"
		if c.Level == "warning" {
			label = "WARN"
		}
		fmt.Fprintf(&b, "  [%s] %s:\n", label, name)
		for _, issue := range c.Issues {
			fmt.Fprintf(&b, "    - %s\n", issue)
		}
	}
	return b.String()
}
