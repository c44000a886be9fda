package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumlContent = `@startuml
participant Client
participant Server
Client -> Server: request
@enduml
`

const drawioContent = `<mxfile><diagram id="d1" name="Page-1"><mxGraphModel><root>
<mxCell id="0"/><mxCell id="1"/>
<mxCell id="a" value="API Gateway" vertex="1" parent="1"><mxGeometry x="10" y="10" width="120" height="40"/></mxCell>
<mxCell id="b" value="User DB" style="shape=cylinder3" vertex="1" parent="1"><mxGeometry x="300" y="10" width="80" height="60"/></mxCell>
<mxCell id="e1" edge="1" source="a" target="b" parent="1"/>
</root></mxGraphModel></diagram></mxfile>`

const svgContent = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="100">
<rect x="10" y="10" width="100" height="40" fill="#dae8fc" stroke="#000"/>
<rect x="250" y="10" width="100" height="40" fill="#ffe6cc" stroke="#000"/>
<text x="60" y="35">Frontend</text>
<text x="300" y="35">Backend</text>
<line x1="110" y1="30" x2="250" y2="30" stroke="#000" marker-end="url(#arrow)"/>
</svg>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
		ok      bool
	}{
		{"mxfile", drawioContent, Drawio, true},
		{"bare model", "<mxGraphModel><root></root></mxGraphModel>", Drawio, true},
		{"plantuml", pumlContent, PlantUML, true},
		{"svg", svgContent, SVG, true},
		{"plain text", "hello world", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormat(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("DrawIO")
	require.NoError(t, err)
	assert.Equal(t, Drawio, f)

	_, err = ParseFormat("visio")
	assert.Error(t, err)
}

func TestFormatForFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()

	puml := writeFile(t, dir, "seq.puml", pumlContent)
	f, err := r.FormatForFile(puml)
	require.NoError(t, err)
	assert.Equal(t, PlantUML, f)

	// .xml is ambiguous: sniffed as drawio here
	xml := writeFile(t, dir, "diagram.xml", drawioContent)
	f, err = r.FormatForFile(xml)
	require.NoError(t, err)
	assert.Equal(t, Drawio, f)

	// unsniffable .xml still falls back to the extension mapping
	opaque := writeFile(t, dir, "opaque.xml", "<config><value>1</value></config>")
	f, err = r.FormatForFile(opaque)
	require.NoError(t, err)
	assert.Equal(t, Drawio, f)

	unknown := writeFile(t, dir, "notes.txt", "architecture notes")
	_, err = r.FormatForFile(unknown)
	assert.Error(t, err)
}

func TestConvertRouting(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()

	puml := writeFile(t, dir, "seq.puml", pumlContent)
	a, err := r.Convert(puml, "", Options{})
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "sequence", string(a.DiagramType))

	dio := writeFile(t, dir, "arch.drawio", drawioContent)
	a, err = r.Convert(dio, "", Options{})
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "drawio", a.Metadata["source_format"])
	assert.Len(t, a.Nodes, 2)
}

func TestConvertForcedFormat(t *testing.T) {
	dir := t.TempDir()
	// plantuml text under a misleading extension
	path := writeFile(t, dir, "seq.txt", pumlContent)

	a, err := NewRegistry().Convert(path, PlantUML, Options{})
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "sequence", string(a.DiagramType))
}

func TestConvertMissingFile(t *testing.T) {
	_, err := NewRegistry().Convert(filepath.Join(t.TempDir(), "absent.drawio"), Drawio, Options{})
	assert.Error(t, err)
}

func TestIsSupported(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsSupported("a/b/c.drawio"))
	assert.True(t, r.IsSupported("x.SVG"))
	assert.True(t, r.IsSupported("x.wsd"))
	assert.False(t, r.IsSupported("x.png"))
}
