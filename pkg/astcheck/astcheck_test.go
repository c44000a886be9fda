package astcheck

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsight/diagast/pkg/ast"
)

func goodAST() *ast.AST {
	a := ast.New(ast.Flowchart)
	a.Direction = ast.LR
	a.Nodes = []ast.Node{
		{ID: "api", Label: "API Gateway", Shape: ast.Rectangle, X: 10, Y: 20},
		{ID: "db", Label: "User DB", Shape: ast.Database, X: 200, Y: 20},
	}
	a.Edges = []ast.Edge{
		{ID: "e1", Source: "api", Target: "db", Style: ast.Solid, ArrowEnd: true},
	}
	return a
}

func TestEvaluatePasses(t *testing.T) {
	r := EvaluateAST(goodAST(), nil)
	assert.True(t, r.Passed)
	assert.Equal(t, 0, r.TotalErrors)
	assert.Equal(t, 0, r.TotalWarnings)
	assert.Equal(t, "PASS", r.Checks["schema"].Status)
	assert.Equal(t, 2, r.Summary.Nodes)
	assert.Equal(t, 1, r.Summary.Edges)
}

func TestSchemaRejectsUnknownValues(t *testing.T) {
	a := goodAST()
	a.DiagramType = "mindmap"
	a.Direction = "NE"
	a.Nodes[0].Shape = "blob"
	a.Edges[0].Style = "wavy"
	a.Edges = append(a.Edges, ast.Edge{ID: "e2", Source: "api"})

	r := EvaluateAST(a, nil)
	assert.False(t, r.Passed)
	schema := r.Checks["schema"]
	assert.Equal(t, "FAIL", schema.Status)
	assert.Contains(t, schema.Issues, `Unknown diagram_type "mindmap" (expected one of [class er flowchart sequence state])`)
	assert.Contains(t, schema.Issues, `Unknown direction "NE" (expected one of [BT LR RL TB])`)
	assert.Contains(t, schema.Issues, `nodes[0] (api): unknown shape "blob"`)
	assert.Contains(t, schema.Issues, `edges[0] (e1): unknown style "wavy"`)
	assert.Contains(t, schema.Issues, "edges[1] (e2): missing 'target'")
}

func TestSchemaDefaultsAreValid(t *testing.T) {
	a := goodAST()
	a.Nodes[0].Shape = ""
	a.Edges[0].Style = ""
	r := EvaluateAST(a, nil)
	assert.Equal(t, "PASS", r.Checks["schema"].Status)
}

func TestGenericLabels(t *testing.T) {
	a := goodAST()
	a.Nodes = append(a.Nodes,
		ast.Node{ID: "n3", Label: "Node_1234"},
		ast.Node{ID: "n4", Label: "   "},
	)
	a.Edges = append(a.Edges,
		ast.Edge{ID: "e2", Source: "n3", Target: "api"},
		ast.Edge{ID: "e3", Source: "n4", Target: "api"},
	)

	r := EvaluateAST(a, nil)
	assert.False(t, r.Passed)
	gl := r.Checks["generic_labels"]
	require.Len(t, gl.Issues, 2)
	assert.Contains(t, gl.Issues[0], "generic label 'Node_1234'")
	assert.Contains(t, gl.Issues[1], "empty label")
	assert.Equal(t, 2, r.Summary.GenericLabelsRemaining)
}

func TestOrphanIsWarningNotError(t *testing.T) {
	a := goodAST()
	a.Nodes = append(a.Nodes, ast.Node{ID: "C", Label: "Cache"})

	r := EvaluateAST(a, nil)
	assert.True(t, r.Passed)
	orphans := r.Checks["orphan_nodes"]
	assert.Equal(t, "WARN", orphans.Status)
	require.Len(t, orphans.Issues, 1)
	assert.Contains(t, orphans.Issues[0], "Node 'C' ('Cache') is an orphan")
	assert.Equal(t, 1, r.TotalWarnings)
}

func TestOrphanInGroupGetsSofterWording(t *testing.T) {
	a := goodAST()
	a.Nodes = append(a.Nodes, ast.Node{ID: "C", Label: "Cache", ParentGroup: "g1"})
	a.Groups = []ast.Group{{ID: "g1", Label: "Backend", Children: []string{"C"}}}

	r := EvaluateAST(a, nil)
	orphans := r.Checks["orphan_nodes"]
	require.Len(t, orphans.Issues, 1)
	assert.Contains(t, orphans.Issues[0], "is in a group but has no edges")
}

func TestEdgeValidity(t *testing.T) {
	a := goodAST()
	a.Edges = append(a.Edges,
		ast.Edge{ID: "e2", Source: "api", Target: "Z"},
		ast.Edge{ID: "e3", Source: "db", Target: "db"},
	)

	r := EvaluateAST(a, nil)
	assert.False(t, r.Passed)
	ev := r.Checks["edge_validity"]
	require.Len(t, ev.Issues, 2)
	assert.Equal(t, "Edge 'e2': target 'Z' does not match any node ID", ev.Issues[0])
	assert.Equal(t, "Edge 'e3': self-loop (source == target == 'db')", ev.Issues[1])
}

func TestDuplicateEdges(t *testing.T) {
	a := goodAST()
	a.Edges = append(a.Edges, ast.Edge{ID: "e9", Source: "api", Target: "db", Style: ast.Dashed})

	r := EvaluateAST(a, nil)
	assert.False(t, r.Passed)
	dup := r.Checks["duplicate_edges"]
	require.Len(t, dup.Issues, 1)
	assert.Equal(t, "Edge 'e9' duplicates 'e1' (both connect api → db)", dup.Issues[0])
}

func TestEmptyGraph(t *testing.T) {
	a := ast.New(ast.Flowchart)
	r := EvaluateAST(a, nil)
	assert.False(t, r.Passed)
	assert.Contains(t, r.Checks["empty_graph"].Issues[0], "AST is empty")

	a.Edges = []ast.Edge{{ID: "e1", Source: "x", Target: "y"}}
	r = EvaluateAST(a, nil)
	assert.Contains(t, r.Checks["empty_graph"].Issues[0], "edges but no nodes")
}

func TestDriftCheck(t *testing.T) {
	partial := goodAST()
	partial.Nodes = append(partial.Nodes, ast.Node{ID: "cache", Label: "Cache", X: 50, Y: 50})
	partial.Edges = append(partial.Edges, ast.Edge{ID: "e2", Source: "api", Target: "cache"})

	final := goodAST()
	final.Nodes[0].X = 100 // moved well past tolerance

	r := EvaluateAST(final, partial)
	drift := r.Checks["cv_drift"]
	assert.Equal(t, "WARN", drift.Status)
	require.Len(t, drift.Issues, 3)
	assert.Contains(t, drift.Issues[0], "position shifted from (10,20) to (100,20)")
	assert.Contains(t, drift.Issues[1], "node 'cache'")
	assert.Contains(t, drift.Issues[1], "was removed")
	assert.Contains(t, drift.Issues[2], "edge api → cache was removed")
	assert.True(t, r.Passed)
}

func TestDriftAllowsSmallMovesAndNewNodes(t *testing.T) {
	partial := goodAST()
	final := goodAST()
	final.Nodes[0].X = 13 // within the 5-unit tolerance
	final.Nodes = append(final.Nodes, ast.Node{ID: "new", Label: "Added later"})
	final.Edges = append(final.Edges, ast.Edge{ID: "e2", Source: "db", Target: "new"})

	r := EvaluateAST(final, partial)
	assert.Equal(t, "PASS", r.Checks["cv_drift"].Status)
}

func TestEvaluateFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final.ast.json")
	require.NoError(t, ast.Save(goodAST(), path))

	r, err := Evaluate(path, "")
	require.NoError(t, err)
	assert.True(t, r.Passed)
	assert.Equal(t, path, r.File)
	_, hasDrift := r.Checks["cv_drift"]
	assert.False(t, hasDrift)

	// unreadable partial skips drift instead of failing
	r, err = Evaluate(path, filepath.Join(dir, "missing.ast.json"))
	require.NoError(t, err)
	assert.True(t, r.Passed)

	_, err = Evaluate(filepath.Join(dir, "nope.ast.json"), "")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	a := goodAST()
	a.Nodes = append(a.Nodes, ast.Node{ID: "C", Label: "Cache"})
	r := EvaluateAST(a, nil)
	out := r.Render()
	assert.Contains(t, out, "Eval: PASS")
	assert.Contains(t, out, "3 nodes, 1 edges, 0 groups")
	assert.Contains(t, out, "[WARN] orphan_nodes:")
}
