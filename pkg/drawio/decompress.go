package drawio

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// Draw.io stores page content as URL-encoded, base64-wrapped, deflate
// compressed text, but the exact framing varies by exporter version.
// Decompression tries each framing in sequence and accepts the first
// result that looks like mxGraph XML.

var diagramBlockRe = regexp.MustCompile(`(?s)<diagram[^>]*>(.*?)</diagram>`)

type decodeFunc func([]byte) ([]byte, error)

func inflateRaw(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	return io.ReadAll(r)
}

func inflateZlib(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func inflateGzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func looksLikeGraphXML(s string) bool {
	return strings.Contains(s, "<mxGraphModel") || strings.Contains(s, "<mxCell")
}

// DecompressDiagramData decodes one <diagram> payload. Already-inline XML
// passes through untouched. Returns false when no decoding attempt
// produced mxGraph XML.
func DecompressDiagramData(data string) (string, bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", false
	}
	if strings.HasPrefix(data, "<") {
		return data, true
	}

	// PathUnescape rather than QueryUnescape: '+' is base64 alphabet,
	// not an encoded space.
	unescaped, err := url.PathUnescape(data)
	if err != nil {
		unescaped = data
	}

	candidates := []string{unescaped}
	if unescaped != data {
		candidates = append(candidates, data)
	}
	decoders := []decodeFunc{inflateRaw, inflateZlib, inflateGzip}

	for _, candidate := range candidates {
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			continue
		}
		for _, decode := range decoders {
			out, err := decode(decoded)
			if err != nil || len(out) == 0 {
				continue
			}
			text := string(out)
			if looksLikeGraphXML(text) {
				return text, true
			}
			// Draw.io percent-encodes the XML before deflating, so the
			// inflated text may still need unescaping.
			if plain, err := url.PathUnescape(text); err == nil && looksLikeGraphXML(plain) {
				return plain, true
			}
		}
	}
	return "", false
}

// ExtractDiagramPages returns the XML of every page in a Draw.io file.
// Inline <mxGraphModel> content is a single page; <diagram> wrappers are
// decompressed individually.
func ExtractDiagramPages(content string) []string {
	if strings.Contains(content, "<mxGraphModel") {
		return []string{content}
	}

	var pages []string
	matches := diagramBlockRe.FindAllStringSubmatch(content, -1)
	if len(matches) > 0 {
		for _, m := range matches {
			data := strings.TrimSpace(m[1])
			if data == "" {
				continue
			}
			if strings.HasPrefix(data, "<") {
				pages = append(pages, data)
			} else if xml, ok := DecompressDiagramData(data); ok {
				pages = append(pages, xml)
			}
		}
		return pages
	}

	// Regex found nothing; a well-formed mxfile may still carry diagram
	// elements with unusual whitespace.
	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil {
		return nil
	}
	root := doc.Root()
	if root == nil || root.Tag != "mxfile" {
		return nil
	}
	for _, diagram := range root.SelectElements("diagram") {
		text := strings.TrimSpace(diagram.Text())
		if text == "" {
			continue
		}
		if xml, ok := DecompressDiagramData(text); ok {
			pages = append(pages, xml)
		}
	}
	return pages
}

var graphModelRe = regexp.MustCompile(`(?s)<mxGraphModel[^>]*>.*?</mxGraphModel>`)

// parseDiagramXML parses page XML, falling back to carving out the
// <mxGraphModel> block when surrounding markup is malformed.
func parseDiagramXML(xmlContent string) *etree.Element {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlContent); err == nil && doc.Root() != nil {
		return doc.Root()
	}
	if m := graphModelRe.FindString(xmlContent); m != "" {
		doc = etree.NewDocument()
		if err := doc.ReadFromString(m); err == nil {
			return doc.Root()
		}
	}
	return nil
}
