package svg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsight/diagast/pkg/ast"
)

const flowSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="420" height="80">
  <rect x="0" y="0" width="100" height="60" fill="#dae8fc" stroke="#6c8ebf"/>
  <rect x="300" y="0" width="100" height="60" fill="#d5e8d4" stroke="#82b366"/>
  <line x1="100" y1="30" x2="300" y2="30" stroke="#000" marker-end="url(#arrow)"/>
  <text x="50" y="30">API Gateway</text>
  <text x="350" y="30">User Database</text>
</svg>`

func TestConvertFlow(t *testing.T) {
	out := Convert(flowSVG)
	require.NotNil(t, out)
	require.Len(t, out.Nodes, 2)
	require.Len(t, out.Edges, 1)

	byID := map[string]ast.Node{}
	for _, n := range out.Nodes {
		byID[n.ID] = n
	}
	gw, ok := byID["API_Gateway"]
	require.True(t, ok)
	assert.Equal(t, "API Gateway", gw.Label)
	assert.Equal(t, "gateway", gw.Role)
	assert.Equal(t, "#dae8fc", gw.FillColor)

	db, ok := byID["User_Database"]
	require.True(t, ok)
	assert.Equal(t, "datastore", db.Role)

	e := out.Edges[0]
	assert.Equal(t, "API_Gateway", e.Source)
	assert.Equal(t, "User_Database", e.Target)
	assert.True(t, e.ArrowEnd)
	assert.False(t, e.ArrowStart)
	assert.Equal(t, ast.Solid, e.Style)

	assert.Equal(t, ast.LR, out.Direction)
	assert.Equal(t, "svg", out.Metadata["source_format"])
}

func TestConvertRasterWrapperReturnsNil(t *testing.T) {
	raster := `<svg xmlns="http://www.w3.org/2000/svg">
  <image href="data:image/png;base64,iVBORw0KGgo=" width="640" height="480"/>
</svg>`
	assert.Nil(t, Convert(raster))
	assert.True(t, IsEmbeddedRaster(raster))
}

func TestIsEmbeddedRaster(t *testing.T) {
	// Image plus real text content is still a parseable diagram.
	mixed := `<svg xmlns="http://www.w3.org/2000/svg">
  <image href="logo.png"/>
  <rect x="0" y="0" width="50" height="50" fill="red"/>
  <rect x="100" y="0" width="50" height="50" fill="blue"/>
  <text x="25" y="25">Service</text>
</svg>`
	assert.False(t, IsEmbeddedRaster(mixed))

	assert.True(t, IsEmbeddedRaster("not xml at all <<<"))
}

func TestConvertNoShapesReturnsNil(t *testing.T) {
	empty := `<svg xmlns="http://www.w3.org/2000/svg"><text x="5" y="5">floating label</text></svg>`
	assert.Nil(t, Convert(empty))

	// White borderless rects are background decoration.
	background := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="800" height="600" fill="#ffffff"/>
  <text x="5" y="5">title</text>
</svg>`
	assert.Nil(t, Convert(background))
}

func TestSyntheticLabels(t *testing.T) {
	unlabeled := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="80" height="40" fill="#dae8fc"/>
  <rect x="0" y="100" width="80" height="40" fill="#d5e8d4"/>
</svg>`
	out := Convert(unlabeled)
	require.NotNil(t, out)
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "Node 1", out.Nodes[0].Label)
	assert.Equal(t, "Node 2", out.Nodes[1].Label)
	assert.Equal(t, ast.TB, out.Direction)
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"API Gateway", "API_Gateway"},
		{"cache!! (redis)", "cache_redis"},
		{"42 services", "n_42_services"},
		{"???", "n_"},
		{"a very long label that keeps going well past thirty characters", "a_very_long_label_that_keeps_g"},
	}
	for _, tt := range tests {
		if got := sanitizeID(tt.in); got != tt.want {
			t.Errorf("sanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEdgeDedupAndSelfLoop(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="100" height="60" fill="red"/>
  <rect x="300" y="0" width="100" height="60" fill="blue"/>
  <line x1="100" y1="30" x2="300" y2="30"/>
  <line x1="100" y1="35" x2="300" y2="35"/>
  <line x1="10" y1="10" x2="90" y2="50"/>
</svg>`
	out := Convert(svg)
	require.NotNil(t, out)
	// Duplicate connector collapses, self-loop inside one box drops.
	assert.Len(t, out.Edges, 1)
}

func TestDashedAndThickLines(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="100" height="60" fill="red"/>
  <rect x="300" y="0" width="100" height="60" fill="blue"/>
  <rect x="0" y="200" width="100" height="60" fill="green"/>
  <line x1="100" y1="30" x2="300" y2="30" stroke-dasharray="4 4"/>
  <line x1="50" y1="60" x2="50" y2="200" stroke-width="4"/>
</svg>`
	out := Convert(svg)
	require.NotNil(t, out)
	require.Len(t, out.Edges, 2)
	styles := map[ast.EdgeStyle]bool{}
	for _, e := range out.Edges {
		styles[e.Style] = true
	}
	assert.True(t, styles[ast.Dashed])
	assert.True(t, styles[ast.Thick])
}

func TestShortLinesIgnored(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="100" height="60" fill="red"/>
  <rect x="105" y="0" width="100" height="60" fill="blue"/>
  <line x1="100" y1="30" x2="105" y2="30"/>
</svg>`
	out := Convert(svg)
	require.NotNil(t, out)
	assert.Empty(t, out.Edges)
}

func TestPathEndpoints(t *testing.T) {
	start, end, ok := pathEndpoints("M 10 20 C 40 40 60 40 90 20")
	require.True(t, ok)
	assert.Equal(t, point{10, 20}, start)
	assert.Equal(t, point{90, 20}, end)

	_, _, ok = pathEndpoints("M 10 20")
	assert.False(t, ok)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arch.svg")
	require.NoError(t, os.WriteFile(path, []byte(flowSVG), 0o644))

	out, err := ConvertFile(path)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, path, out.Metadata["source_file"])

	_, err = ConvertFile(filepath.Join(dir, "nope.svg"))
	require.Error(t, err)
}
