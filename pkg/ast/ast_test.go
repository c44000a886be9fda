package ast

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAST() *AST {
	a := New(Flowchart)
	a.Nodes = []Node{
		{ID: "gw", Label: "API Gateway", Shape: Rectangle, X: 100, Y: 40, Width: 120, Height: 60, FillColor: "#dae8fc"},
		{ID: "db", Label: "User DB", Shape: Database, X: 300, Y: 40, Width: 80, Height: 80},
	}
	a.Edges = []Edge{
		{ID: "edge_1", Source: "gw", Target: "db", Label: "HTTPS query", Style: Dashed, ArrowEnd: true},
	}
	a.Groups = []Group{
		{ID: "g1", Label: "Internal Zone", Children: []string{"db"}, Style: Solid},
	}
	a.Metadata["source_format"] = "test"
	return a
}

func TestJSONRoundTrip(t *testing.T) {
	a := sampleAST()

	data, err := ToJSON(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version": "2.0.0"`)

	got, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, a.Nodes, got.Nodes)
	assert.Equal(t, a.Edges, got.Edges)
	assert.Equal(t, a.Groups, got.Groups)
	assert.Equal(t, a.DiagramType, got.DiagramType)
	assert.Equal(t, a.Direction, got.Direction)
	assert.Equal(t, "test", got.Metadata["source_format"])
}

func TestFromJSONDefaults(t *testing.T) {
	raw := `{
		"nodes": [{"id": "a", "label": "A"}],
		"edges": [{"id": "e1", "source": "a", "target": "b"}],
		"unknown_top_level": 42
	}`
	got, err := FromJSON([]byte(raw))
	require.NoError(t, err)

	require.Len(t, got.Nodes, 1)
	assert.Equal(t, Rectangle, got.Nodes[0].Shape)

	require.Len(t, got.Edges, 1)
	assert.Equal(t, Solid, got.Edges[0].Style)
	assert.True(t, got.Edges[0].ArrowEnd, "arrow_end defaults to true")
	assert.False(t, got.Edges[0].ArrowStart)

	assert.Equal(t, Flowchart, got.DiagramType)
	assert.Equal(t, TB, got.Direction)
}

func TestFromJSONExplicitFalseArrow(t *testing.T) {
	raw := `{"nodes": [], "edges": [{"id": "e", "source": "a", "target": "b", "arrow_end": false}]}`
	got, err := FromJSON([]byte(raw))
	require.NoError(t, err)
	assert.False(t, got.Edges[0].ArrowEnd)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.ast.json")
	a := sampleAST()

	require.NoError(t, Save(a, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, a.Nodes, got.Nodes)
	assert.Equal(t, a.Edges, got.Edges)
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		want  Direction
	}{
		{
			name:  "wide spread is LR",
			nodes: []Node{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 10}},
			want:  LR,
		},
		{
			name:  "tall spread is TB",
			nodes: []Node{{X: 0, Y: 0}, {X: 0, Y: 100}, {X: 10, Y: 0}},
			want:  TB,
		},
		{
			name:  "single node defaults TB",
			nodes: []Node{{X: 500, Y: 0}},
			want:  TB,
		},
		{
			name:  "unpositioned nodes default TB",
			nodes: []Node{{}, {}, {}},
			want:  TB,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDirection(tt.nodes); got != tt.want {
				t.Errorf("DetectDirection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDiagramType(t *testing.T) {
	for _, valid := range []string{"flowchart", "sequence", "class", "state", "er"} {
		_, err := ParseDiagramType(valid)
		assert.NoError(t, err, valid)
	}
	_, err := ParseDiagramType("mindmap")
	assert.Error(t, err)
}

func TestASTErrorTag(t *testing.T) {
	a := New(Flowchart)
	assert.False(t, a.HasError())
	a.SetError("xml_parse_failed")
	assert.True(t, a.HasError())
}
