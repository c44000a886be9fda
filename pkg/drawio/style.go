package drawio

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

// ParseStyle parses a Draw.io style string ("rounded=1;fillColor=#fff;dashed")
// into a map. Bare flags become "true".
func ParseStyle(style string) map[string]string {
	result := map[string]string{}
	if style == "" {
		return result
	}
	for _, token := range strings.Split(style, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if k, v, ok := strings.Cut(token, "="); ok {
			result[strings.TrimSpace(k)] = strings.TrimSpace(v)
		} else {
			result[token] = "true"
		}
	}
	return result
}

var (
	brRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	multiWSRe = regexp.MustCompile(`\s+`)
)

// CleanLabel strips HTML markup and entities from a cell value, collapsing
// whitespace. Draw.io labels are frequently rich-text fragments.
func CleanLabel(value string) string {
	if value == "" {
		return ""
	}
	value = html.UnescapeString(value)
	value = brRe.ReplaceAllString(value, " ")
	value = tagRe.ReplaceAllString(value, "")
	value = strings.ReplaceAll(value, " ", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", "")
	value = multiWSRe.ReplaceAllString(value, " ")
	value = strings.ReplaceAll(value, `"`, "'")
	return strings.TrimSpace(value)
}

// shapeGroup marks container cells; it never appears on an emitted node.
const shapeGroup = "group"

// shape keyword table, checked in order against the style's shape key.
var shapeMappings = []struct {
	key   string
	shape ast.Shape
}{
	{"cylinder", ast.Database},
	{"database", ast.Database},
	{"datastore", ast.Database},
	{"rhombus", ast.Diamond},
	{"diamond", ast.Diamond},
	{"mxgraph.flowchart.decision", ast.Diamond},
	{"doubleellipse", ast.Circle},
	{"ellipse", ast.Circle},
	{"mxgraph.flowchart.terminator", ast.Stadium},
	{"mxgraph.flowchart.start", ast.Circle},
	{"parallelogram", ast.Parallelogram},
	{"mxgraph.flowchart.data", ast.Parallelogram},
	{"hexagon", ast.Hexagon},
	{"mxgraph.flowchart.process", ast.Rectangle},
	{"process", ast.Rectangle},
}

// DetectShape maps a parsed style to the canonical shape vocabulary.
// Container styles (swimlane/group) return shapeGroup, which callers treat
// as a group marker rather than a node shape.
func DetectShape(style map[string]string) string {
	shape := strings.ToLower(style["shape"])
	for _, m := range shapeMappings {
		if strings.Contains(shape, m.key) {
			return string(m.shape)
		}
	}
	// keywords like rhombus or hexagon also appear as bare leading tokens
	for _, m := range shapeMappings {
		if _, ok := style[m.key]; ok {
			return string(m.shape)
		}
	}
	if style["rounded"] == "1" {
		return string(ast.Stadium)
	}
	if _, ok := style["ellipse"]; ok {
		return string(ast.Circle)
	}
	if _, ok := style["swimlane"]; ok {
		return shapeGroup
	}
	if _, ok := style["group"]; ok {
		return shapeGroup
	}
	return string(ast.Rectangle)
}

// DetectEdgeStyle maps a parsed edge style to the canonical line styles.
// Stroke widths of 3 or more count as thick.
func DetectEdgeStyle(style map[string]string) ast.EdgeStyle {
	if style["dashed"] == "1" || style["dashed"] == "true" {
		return ast.Dashed
	}
	if style["dotted"] == "1" {
		return ast.Dotted
	}
	if w, err := strconv.Atoi(style["strokeWidth"]); err == nil && w >= 3 {
		return ast.Thick
	}
	return ast.Solid
}

// HasArrow reports whether the edge carries an arrowhead at the given end
// ("start" or "end"). Draw.io's default is a classic arrowhead at the end
// and none at the start; "none" and "open" count as no arrowhead.
func HasArrow(style map[string]string, end string) bool {
	arrow, ok := style[end+"Arrow"]
	if !ok {
		if end != "end" {
			return false
		}
		arrow = "classic"
	}
	switch strings.ToLower(arrow) {
	case "none", "open", "":
		return false
	}
	return true
}

// ExtractColors pulls fill/stroke/font colors from a style, treating
// none/default/white as absent.
func ExtractColors(style map[string]string) (fill, stroke, font string) {
	return filterColor(style["fillColor"]), filterColor(style["strokeColor"]), filterColor(style["fontColor"])
}

func filterColor(c string) string {
	c = strings.TrimSpace(c)
	switch strings.ToLower(c) {
	case "", "none", "default", "#ffffff", "white":
		return ""
	}
	return c
}
