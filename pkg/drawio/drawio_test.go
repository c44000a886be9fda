package drawio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsight/diagast/pkg/ast"
)

func TestParseStyle(t *testing.T) {
	style := ParseStyle("rounded=1;fillColor=#dae8fc;html=1;shape")
	if style["rounded"] != "1" {
		t.Errorf("rounded = %q, want 1", style["rounded"])
	}
	if style["fillColor"] != "#dae8fc" {
		t.Errorf("fillColor = %q, want #dae8fc", style["fillColor"])
	}
	// Bare flags with no value read as true.
	if style["shape"] != "true" {
		t.Errorf("shape = %q, want true", style["shape"])
	}
	if len(ParseStyle("")) != 0 {
		t.Error("empty style should parse to empty map")
	}
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"API&nbsp;Gateway", "API Gateway"},
		{"line1<br>line2", "line1 line2"},
		{"<b>Bold</b> text", "Bold text"},
		{`say "hi"`, "say 'hi'"},
		{"  lots   of\tspace  ", "lots of space"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanLabel(tt.in); got != tt.want {
			t.Errorf("CleanLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectShape(t *testing.T) {
	tests := []struct {
		style string
		want  string
	}{
		{"shape=cylinder;whiteSpace=wrap", "database"},
		{"rhombus;html=1", "diamond"},
		{"ellipse;fillColor=#fff", "circle"},
		{"rounded=1;whiteSpace=wrap", "stadium"},
		{"shape=parallelogram", "parallelogram"},
		{"shape=hexagon", "hexagon"},
		{"swimlane;startSize=20", "group"},
		{"whiteSpace=wrap;html=1", "rectangle"},
	}
	for _, tt := range tests {
		if got := DetectShape(ParseStyle(tt.style)); got != tt.want {
			t.Errorf("DetectShape(%q) = %q, want %q", tt.style, got, tt.want)
		}
	}
}

func TestEdgeStyleAndArrows(t *testing.T) {
	style := ParseStyle("dashed=1;startArrow=classic;endArrow=none")
	assert.Equal(t, ast.Dashed, DetectEdgeStyle(style))
	assert.True(t, HasArrow(style, "start"))
	assert.False(t, HasArrow(style, "end"))

	// Default edge: arrowhead at the end only.
	plain := ParseStyle("edgeStyle=orthogonalEdgeStyle")
	assert.Equal(t, ast.Solid, DetectEdgeStyle(plain))
	assert.False(t, HasArrow(plain, "start"))
	assert.True(t, HasArrow(plain, "end"))

	assert.Equal(t, ast.Thick, DetectEdgeStyle(ParseStyle("strokeWidth=4")))
	assert.Equal(t, ast.Dotted, DetectEdgeStyle(ParseStyle("dotted=1")))
}

func TestExtractColors(t *testing.T) {
	fill, stroke, font := ExtractColors(ParseStyle("fillColor=#dae8fc;strokeColor=none;fontColor=#FFFFFF"))
	assert.Equal(t, "#dae8fc", fill)
	assert.Empty(t, stroke, "none is not a color")
	assert.Empty(t, font, "white is not a color")
}

// Payload produced by Draw.io's standard encoding: the XML is
// percent-encoded, raw-deflated, then base64'd.
const compressedPage = "jVAxDsMgDHyNdwodupM2U+fORFgFCUqEaEt+X4QdRRkidbBk3/nOJ4PSsY7ZzO6eLAZQV1A6p1Soi1VjCCCFt6AGkFK0Ank7YE+dFbPJ+Cr/CAwJPia8kZAHToxhLlgPfTvEpiOmiCUvbWUV0Fmx0MgpxNfb4gi6MOTQPx17nndhW8N513H7S+d2b/sB"

func TestDecompressDiagramData(t *testing.T) {
	inline := "<mxGraphModel><root/></mxGraphModel>"
	got, ok := DecompressDiagramData(inline)
	require.True(t, ok)
	assert.Equal(t, inline, got)

	got, ok = DecompressDiagramData(compressedPage)
	require.True(t, ok)
	assert.Contains(t, got, "<mxGraphModel")
	assert.Contains(t, got, `value="Web"`)

	_, ok = DecompressDiagramData("definitely not base64!!!")
	assert.False(t, ok)

	_, ok = DecompressDiagramData("")
	assert.False(t, ok)
}

func TestExtractDiagramPages(t *testing.T) {
	multi := `<mxfile><diagram id="p1" name="Page-1">` + compressedPage + `</diagram>` +
		`<diagram id="p2" name="Page-2">` + compressedPage + `</diagram></mxfile>`
	pages := ExtractDiagramPages(multi)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "<mxCell")

	inline := `<mxGraphModel><root><mxCell id="0"/></root></mxGraphModel>`
	pages = ExtractDiagramPages(inline)
	require.Len(t, pages, 1)
	assert.Equal(t, inline, pages[0])

	assert.Empty(t, ExtractDiagramPages("not a diagram at all"))
}

const scenarioXML = `<mxGraphModel dx="800" dy="600">
  <root>
    <mxCell id="0"/>
    <mxCell id="1" parent="0"/>
    <mxCell id="gw" value="API Gateway" style="rounded=0;whiteSpace=wrap;fillColor=#dae8fc" vertex="1" parent="1">
      <mxGeometry x="40" y="80" width="160" height="60"/>
    </mxCell>
    <mxCell id="db" value="User DB" style="shape=cylinder;whiteSpace=wrap" vertex="1" parent="1">
      <mxGeometry x="320" y="80" width="120" height="80"/>
    </mxCell>
    <mxCell id="e1" value="HTTPS query" style="dashed=1;endArrow=classic" edge="1" source="gw" target="db" parent="1"/>
  </root>
</mxGraphModel>`

func TestConvertScenario(t *testing.T) {
	out := Convert(scenarioXML, 0)
	require.NotNil(t, out)
	require.False(t, out.HasError())

	require.Len(t, out.Nodes, 2)
	require.Len(t, out.Edges, 1)

	byID := map[string]ast.Node{}
	for _, n := range out.Nodes {
		byID[n.ID] = n
	}
	gw := byID["gw"]
	assert.Equal(t, "API Gateway", gw.Label)
	assert.Equal(t, "gateway", gw.Role)
	assert.Equal(t, "#dae8fc", gw.FillColor)

	db := byID["db"]
	assert.Equal(t, ast.Database, db.Shape)
	assert.Equal(t, "datastore", db.Role)

	e := out.Edges[0]
	assert.Equal(t, "gw", e.Source)
	assert.Equal(t, "db", e.Target)
	assert.Equal(t, "HTTPS query", e.Label)
	assert.Equal(t, ast.Dashed, e.Style)
	assert.Equal(t, "HTTPS", e.Protocol)

	assert.Equal(t, ast.LR, out.Direction)
	assert.Equal(t, "drawio", out.Metadata["source_format"])
	assert.Equal(t, "xml_parse", out.Metadata["extraction_method"])
}

func TestConvertGroups(t *testing.T) {
	xml := `<mxGraphModel><root>
    <mxCell id="0"/><mxCell id="1" parent="0"/>
    <mxCell id="zone" value="Internal Zone" style="swimlane;startSize=20" vertex="1" parent="1">
      <mxGeometry x="0" y="0" width="400" height="300"/>
    </mxCell>
    <mxCell id="svc" value="Auth Service" vertex="1" parent="zone">
      <mxGeometry x="20" y="40" width="120" height="60"/>
    </mxCell>
  </root></mxGraphModel>`
	out := Convert(xml, 0)
	require.Len(t, out.Groups, 1)
	g := out.Groups[0]
	assert.Equal(t, "Internal Zone", g.Label)
	assert.Contains(t, g.Children, "svc")
	assert.Equal(t, "internal", g.ZoneType)

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "zone", out.Nodes[0].ParentGroup)
}

func TestConvertSyntheticLabels(t *testing.T) {
	xml := `<mxGraphModel><root>
    <mxCell id="0"/><mxCell id="1" parent="0"/>
    <mxCell id="node-abcd1234" style="whiteSpace=wrap" vertex="1" parent="1">
      <mxGeometry x="0" y="0" width="80" height="40"/>
    </mxCell>
  </root></mxGraphModel>`
	out := Convert(xml, 0)
	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "Node_1234", out.Nodes[0].Label)
}

func TestConvertErrorCases(t *testing.T) {
	out := Convert("no diagrams here", 0)
	require.True(t, out.HasError())
	assert.Equal(t, "no_pages", out.Metadata["error"])
	assert.Empty(t, out.Nodes)

	// Out-of-range page index falls back to page 0.
	out = Convert(scenarioXML, 99)
	require.False(t, out.HasError())
	assert.Equal(t, 0, out.Metadata["page_index"])
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arch.drawio")
	require.NoError(t, os.WriteFile(path, []byte(scenarioXML), 0o644))

	out, err := ConvertFile(path, 0)
	require.NoError(t, err)
	assert.Len(t, out.Nodes, 2)
	assert.Equal(t, path, out.Metadata["source_file"])

	_, err = ConvertFile(filepath.Join(dir, "missing.drawio"), 0)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing.drawio"))
}
