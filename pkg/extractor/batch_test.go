package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsight/diagast/pkg/ast"
	"github.com/archsight/diagast/pkg/cache"
)

const rasterSVG = `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
<image xlink:href="data:image/png;base64,iVBORw0KGgo=" width="400" height="300"/>
</svg>`

func TestBatch(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	writeFile(t, src, "seq.puml", pumlContent)
	writeFile(t, src, "arch.drawio", drawioContent)
	writeFile(t, src, "flow.svg", svgContent)
	writeFile(t, src, "photo.svg", rasterSVG)
	writeFile(t, src, "notes.txt", "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	writeFile(t, filepath.Join(src, "nested"), "inner.puml", pumlContent)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "_skipped"), 0755))
	writeFile(t, filepath.Join(src, "_skipped"), "hidden.puml", pumlContent)

	summary, err := NewRegistry().Batch(src, out, 4, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Converted)
	assert.Equal(t, 1, summary.Declined)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, summary.Results, 5)

	// outputs mirror the source layout
	a, err := ast.Load(filepath.Join(out, "nested", "inner.ast.json"))
	require.NoError(t, err)
	assert.Equal(t, "sequence", string(a.DiagramType))

	_, err = os.Stat(filepath.Join(out, "arch.ast.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "photo.ast.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestBatchUsesCache(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, src, "seq.puml", pumlContent)

	store, err := cache.New(16)
	require.NoError(t, err)

	r := NewRegistry()
	summary, err := r.Batch(src, out, 1, store)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)

	summary, err = r.Batch(src, out, 1, store)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cached)
	assert.Equal(t, 0, summary.Converted)

	// changing the file invalidates its fingerprint
	writeFile(t, src, "seq.puml", pumlContent+"\nClient -> Server: again\n")
	summary, err = r.Batch(src, out, 1, store)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
}

func TestBatchIsolatesFailures(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, src, "good.puml", pumlContent)
	// unreadable file: a dangling symlink with a supported extension
	require.NoError(t, os.Symlink(filepath.Join(src, "missing-target"), filepath.Join(src, "broken.puml")))

	summary, err := NewRegistry().Batch(src, out, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 1, summary.Failed)

	var failed FileResult
	for _, res := range summary.Results {
		if res.Status == "error" {
			failed = res
		}
	}
	assert.Contains(t, failed.File, "broken.puml")
	assert.NotEmpty(t, failed.Error)
}

func TestBatchEmptyDir(t *testing.T) {
	summary, err := NewRegistry().Batch(t.TempDir(), t.TempDir(), 4, nil)
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
}
