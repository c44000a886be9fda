// Package extractor routes diagram source files to the right format
// converter. Routing is by file extension first and content sniffing
// second, so a generic .xml export still lands on the Draw.io path.
package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
	"github.com/archsight/diagast/pkg/drawio"
	"github.com/archsight/diagast/pkg/plantuml"
	"github.com/archsight/diagast/pkg/svg"
)

// Format identifies a supported diagram source format.
type Format string

const (
	Drawio   Format = "drawio"
	SVG      Format = "svg"
	PlantUML Format = "plantuml"
)

// ParseFormat validates a format string, e.g. from a --format flag.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case Drawio, SVG, PlantUML:
		return Format(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unsupported format: %q", s)
}

// Options carries per-conversion settings.
type Options struct {
	// PageIndex selects a page in multi-page Draw.io files. Ignored by
	// other formats.
	PageIndex int
}

// ConvertFunc converts one source file into an AST. A (nil, nil) return
// means the converter declined the file (e.g. an SVG wrapping a raster
// image): not an error, but no AST either.
type ConvertFunc func(path string, opts Options) (*ast.AST, error)

// Registry maps formats and file extensions to converters.
type Registry struct {
	converters map[Format]ConvertFunc
	extensions map[string]Format
}

// NewRegistry returns a registry with the built-in format mappings.
func NewRegistry() *Registry {
	r := &Registry{
		converters: make(map[Format]ConvertFunc),
		extensions: make(map[string]Format),
	}

	r.Register(Drawio, []string{".drawio", ".xml"}, func(path string, opts Options) (*ast.AST, error) {
		return drawio.ConvertFile(path, opts.PageIndex)
	})
	r.Register(SVG, []string{".svg"}, func(path string, _ Options) (*ast.AST, error) {
		return svg.ConvertFile(path)
	})
	r.Register(PlantUML, []string{".puml", ".plantuml", ".uml", ".wsd", ".iuml"}, func(path string, _ Options) (*ast.AST, error) {
		return plantuml.ConvertFile(path)
	})

	return r
}

// Register adds a format with its extensions and converter.
func (r *Registry) Register(f Format, extensions []string, fn ConvertFunc) {
	r.converters[f] = fn
	for _, ext := range extensions {
		r.extensions[ext] = f
	}
}

// SupportedExtensions returns all registered file extensions.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		exts = append(exts, ext)
	}
	return exts
}

// IsSupported reports whether a file would be routed to some converter.
func (r *Registry) IsSupported(path string) bool {
	_, ok := r.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DetectFormat sniffs content when the extension is missing or ambiguous.
// Draw.io wins over SVG for mxfile/mxGraphModel payloads because Draw.io
// can export mxGraph-bearing XML under several wrappers.
func DetectFormat(content string) (Format, bool) {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "<mxfile") || strings.Contains(lower, "<mxgraphmodel"):
		return Drawio, true
	case strings.Contains(lower, "@startuml"):
		return PlantUML, true
	case strings.Contains(lower, "<svg"):
		return SVG, true
	}
	return "", false
}

// FormatForFile resolves the format of a file. Unambiguous extensions win;
// .xml and unknown extensions fall back to content sniffing.
func (r *Registry) FormatForFile(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := r.extensions[ext]; ok && ext != ".xml" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if f, ok := DetectFormat(string(data)); ok {
		return f, nil
	}
	if f, ok := r.extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("cannot determine diagram format of %s", path)
}

// Convert routes a file to its converter and runs it. The forced format,
// when non-empty, bypasses detection.
func (r *Registry) Convert(path string, forced Format, opts Options) (*ast.AST, error) {
	f := forced
	if f == "" {
		var err error
		f, err = r.FormatForFile(path)
		if err != nil {
			return nil, err
		}
	}
	fn, ok := r.converters[f]
	if !ok {
		return nil, fmt.Errorf("no converter registered for format %s", f)
	}
	return fn(path, opts)
}

// ConvertFile is the package-level convenience over a fresh registry.
func ConvertFile(path string, forced Format, opts Options) (*ast.AST, error) {
	return NewRegistry().Convert(path, forced, opts)
}
