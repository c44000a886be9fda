// Package svg converts vector SVG diagrams into the canonical diagram
// AST by reading geometry directly: rects/circles/ellipses become nodes,
// text elements are matched to the shapes that contain them, and
// line/path/polyline segments whose endpoints sit near two distinct
// shapes become edges.
//
// SVGs that merely wrap a raster bitmap carry no structure to parse;
// Convert returns nil for those so callers can fall back to an image
// pipeline.
package svg

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/ast"
)

// Endpoint-to-shape matching tolerance, in SVG user units. Connectors
// rarely touch the shape border exactly.
const edgeTolerance = 30.0

// Line segments shorter than this are treated as decoration (tick
// marks, arrowhead strokes), not connectors.
const minLineLength = 10.0

var numberRe = regexp.MustCompile(`[-+]?\d*\.?\d+`)

func allElements(el *etree.Element) []*etree.Element {
	out := []*etree.Element{el}
	for _, child := range el.ChildElements() {
		out = append(out, allElements(child)...)
	}
	return out
}

// parseStyle splits an inline CSS style attribute into a map.
func parseStyle(s string) map[string]string {
	result := map[string]string{}
	for _, part := range strings.Split(s, ";") {
		if k, v, ok := strings.Cut(part, ":"); ok {
			result[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return result
}

// presentation attributes win over the style attribute, matching how
// most diagram exporters write SVG.
func styleProp(el *etree.Element, name string) string {
	if v := el.SelectAttrValue(name, ""); v != "" {
		return v
	}
	return parseStyle(el.SelectAttrValue("style", ""))[name]
}

func getFill(el *etree.Element) string {
	fill := styleProp(el, "fill")
	if fill == "none" {
		return ""
	}
	return fill
}

func getStroke(el *etree.Element) string {
	stroke := styleProp(el, "stroke")
	if stroke == "none" {
		return ""
	}
	return stroke
}

func hasStrokeDash(el *etree.Element) bool {
	dash := styleProp(el, "stroke-dasharray")
	return dash != "" && dash != "none"
}

func strokeWidth(el *etree.Element) float64 {
	w := styleProp(el, "stroke-width")
	if w == "" {
		return 1.0
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, w)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 1.0
	}
	return f
}

func attrFloat(el *etree.Element, name string) float64 {
	f, err := strconv.ParseFloat(el.SelectAttrValue(name, "0"), 64)
	if err != nil {
		return 0
	}
	return f
}

type box struct {
	x, y, w, h float64
}

func (b box) center() (float64, float64) {
	return b.x + b.w/2, b.y + b.h/2
}

func (b box) contains(px, py float64, yTol float64) bool {
	return b.x <= px && px <= b.x+b.w && b.y-yTol <= py && py <= b.y+b.h+yTol
}

// near reports whether (px,py) is within tol of the box, measuring
// distance to the nearest border point (zero when inside).
func (b box) near(px, py, tol float64) bool {
	cx, cy := b.center()
	dx := math.Max(math.Abs(px-cx)-b.w/2, 0)
	dy := math.Max(math.Abs(py-cy)-b.h/2, 0)
	return math.Hypot(dx, dy) <= tol
}

func shapeBBox(el *etree.Element) (box, bool) {
	switch el.Tag {
	case "rect":
		return box{attrFloat(el, "x"), attrFloat(el, "y"), attrFloat(el, "width"), attrFloat(el, "height")}, true
	case "circle":
		cx, cy, r := attrFloat(el, "cx"), attrFloat(el, "cy"), attrFloat(el, "r")
		return box{cx - r, cy - r, 2 * r, 2 * r}, true
	case "ellipse":
		cx, cy := attrFloat(el, "cx"), attrFloat(el, "cy")
		rx, ry := attrFloat(el, "rx"), attrFloat(el, "ry")
		return box{cx - rx, cy - ry, 2 * rx, 2 * ry}, true
	}
	return box{}, false
}

func detectShapeType(el *etree.Element) ast.Shape {
	switch el.Tag {
	case "circle":
		return ast.Circle
	case "ellipse":
		return ast.Stadium
	case "polygon", "path":
		return ast.Diamond
	case "rect":
		if attrFloat(el, "rx") > 10 || attrFloat(el, "ry") > 10 {
			return ast.Stadium
		}
	}
	return ast.Rectangle
}

type point struct {
	x, y float64
}

// pathEndpoints extracts the first and last coordinate pair of a path's
// d attribute. Good enough for connector paths, which start at one
// shape and end at another regardless of curvature in between.
func pathEndpoints(d string) (point, point, bool) {
	nums := numberRe.FindAllString(d, -1)
	if len(nums) < 4 {
		return point{}, point{}, false
	}
	parse := func(s string) float64 {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	start := point{parse(nums[0]), parse(nums[1])}
	end := point{parse(nums[len(nums)-2]), parse(nums[len(nums)-1])}
	return start, end, true
}

func hasArrowhead(el *etree.Element) bool {
	if el.SelectAttrValue("marker-end", "") != "" || el.SelectAttrValue("marker-start", "") != "" {
		return true
	}
	style := parseStyle(el.SelectAttrValue("style", ""))
	return style["marker-end"] != "" || style["marker-start"] != ""
}

func hasMarkerStart(el *etree.Element) bool {
	if el.SelectAttrValue("marker-start", "") != "" {
		return true
	}
	return parseStyle(el.SelectAttrValue("style", ""))["marker-start"] != ""
}

var (
	nonAlnumRe    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscoresRe = regexp.MustCompile(`_+`)
)

func sanitizeID(text string) string {
	clean := nonAlnumRe.ReplaceAllString(text, "_")
	clean = underscoresRe.ReplaceAllString(clean, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" || (clean[0] >= '0' && clean[0] <= '9') {
		clean = "n_" + clean
	}
	if len(clean) > 30 {
		clean = clean[:30]
	}
	return clean
}

func isWhiteOrAbsent(fill string) bool {
	switch strings.ToLower(fill) {
	case "", "#ffffff", "white":
		return true
	}
	return false
}

// IsEmbeddedRaster reports whether the SVG is only a wrapper around a
// bitmap: an <image> element with no text content and at most one rect,
// or a data-URI PNG/JPEG with no text. Unparseable content counts as
// raster since nothing structural can be read from it either way.
func IsEmbeddedRaster(content string) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil {
		return true
	}
	root := doc.Root()
	if root == nil {
		return true
	}

	var images []*etree.Element
	var texts, rects int
	for _, el := range allElements(root) {
		switch el.Tag {
		case "image":
			images = append(images, el)
		case "text", "tspan":
			if strings.TrimSpace(el.Text()) != "" {
				texts++
			}
		case "rect":
			rects++
		}
	}

	if len(images) > 0 && texts == 0 && rects <= 1 {
		return true
	}
	for _, img := range images {
		href := img.SelectAttrValue("href", "")
		if href == "" {
			for _, attr := range img.Attr {
				if attr.Key == "href" {
					href = attr.Value
				}
			}
		}
		if (strings.HasPrefix(href, "data:image/png") || strings.HasPrefix(href, "data:image/jpeg")) && texts == 0 {
			return true
		}
	}
	return false
}

type shapeInfo struct {
	bbox   box
	shape  ast.Shape
	fill   string
	stroke string
	label  string
	id     string
}

type textInfo struct {
	text string
	x, y float64
}

type lineInfo struct {
	start, end point
	dashed     bool
	thick      bool
	hasArrow   bool
	startArrow bool
}

// ConvertFile reads an SVG file and converts it. A nil AST with nil
// error means the SVG is a raster wrapper with nothing to extract.
func ConvertFile(path string) (*ast.AST, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := Convert(string(content))
	if out != nil {
		out.Metadata["source_file"] = path
	}
	return out, nil
}

// Convert parses SVG content into an enriched AST, or nil when the SVG
// carries no parseable structure.
func Convert(content string) *ast.AST {
	if IsEmbeddedRaster(content) {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil {
		return nil
	}
	root := doc.Root()
	if root == nil {
		return nil
	}

	var shapes []*shapeInfo
	var texts []textInfo
	var lines []lineInfo

	for _, el := range allElements(root) {
		switch el.Tag {
		case "rect", "circle", "ellipse":
			bb, ok := shapeBBox(el)
			if !ok || bb.w <= 5 || bb.h <= 5 {
				continue
			}
			fill := getFill(el)
			stroke := getStroke(el)
			// White borderless boxes are background, not components.
			if isWhiteOrAbsent(fill) && stroke == "" {
				continue
			}
			shapes = append(shapes, &shapeInfo{
				bbox:   bb,
				shape:  detectShapeType(el),
				fill:   fill,
				stroke: stroke,
			})

		case "text", "tspan":
			text := strings.TrimSpace(el.Text())
			if text != "" {
				texts = append(texts, textInfo{text, attrFloat(el, "x"), attrFloat(el, "y")})
			}

		case "line", "path", "polyline":
			var start, end point
			switch el.Tag {
			case "line":
				start = point{attrFloat(el, "x1"), attrFloat(el, "y1")}
				end = point{attrFloat(el, "x2"), attrFloat(el, "y2")}
			case "path":
				d := el.SelectAttrValue("d", "")
				var ok bool
				if start, end, ok = pathEndpoints(d); !ok {
					continue
				}
			default:
				nums := numberRe.FindAllString(el.SelectAttrValue("points", ""), -1)
				if len(nums) < 4 {
					continue
				}
				parse := func(s string) float64 {
					f, _ := strconv.ParseFloat(s, 64)
					return f
				}
				start = point{parse(nums[0]), parse(nums[1])}
				end = point{parse(nums[len(nums)-2]), parse(nums[len(nums)-1])}
			}
			if math.Hypot(end.x-start.x, end.y-start.y) < minLineLength {
				continue
			}
			lines = append(lines, lineInfo{
				start:      start,
				end:        end,
				dashed:     hasStrokeDash(el),
				thick:      strokeWidth(el) > 2.5,
				hasArrow:   hasArrowhead(el),
				startArrow: hasMarkerStart(el),
			})
		}
	}

	if len(shapes) == 0 {
		return nil
	}

	associateText(shapes, texts)

	labeled := make([]*shapeInfo, 0, len(shapes))
	for _, s := range shapes {
		if s.label != "" {
			labeled = append(labeled, s)
		}
	}
	if len(labeled) == 0 {
		for i, s := range shapes {
			s.label = fmt.Sprintf("Node %d", i+1)
		}
		labeled = shapes
	}

	usedIDs := map[string]bool{}
	for _, s := range labeled {
		base := sanitizeID(s.label)
		id := base
		for counter := 1; usedIDs[id]; counter++ {
			id = fmt.Sprintf("%s_%d", base, counter)
		}
		s.id = id
		usedIDs[id] = true
	}

	out := ast.New(ast.Flowchart)
	for _, s := range labeled {
		out.Nodes = append(out.Nodes, ast.Node{
			ID:          s.id,
			Label:       s.label,
			Shape:       s.shape,
			X:           s.bbox.x,
			Y:           s.bbox.y,
			Width:       s.bbox.w,
			Height:      s.bbox.h,
			FillColor:   s.fill,
			StrokeColor: s.stroke,
		})
	}
	out.Edges = buildEdges(labeled, lines)
	out.Direction = detectDirection(labeled)
	out.Metadata["source_format"] = "svg"
	out.Metadata["extraction_method"] = "xml_parse"

	log.Default().Debug("svg extraction complete",
		"shapes", len(labeled), "edges", len(out.Edges), "texts", len(texts))

	return ast.Enrich(out)
}

// associateText assigns each text fragment to the nearest shape whose
// bounding box contains the text anchor, with vertical slack for
// baseline offsets. Fragments landing in the same shape concatenate.
func associateText(shapes []*shapeInfo, texts []textInfo) {
	for _, txt := range texts {
		var best *shapeInfo
		bestDist := math.Inf(1)
		for _, s := range shapes {
			if !s.bbox.contains(txt.x, txt.y, 10) {
				continue
			}
			cx, cy := s.bbox.center()
			d := math.Hypot(txt.x-cx, txt.y-cy)
			if d < bestDist {
				bestDist = d
				best = s
			}
		}
		if best == nil {
			continue
		}
		if best.label != "" {
			best.label += " " + txt.text
		} else {
			best.label = txt.text
		}
	}
}

// buildEdges resolves each line's endpoints against shape boxes and
// keeps the first edge seen per (source, target) pair.
func buildEdges(shapes []*shapeInfo, lines []lineInfo) []ast.Edge {
	var edges []ast.Edge
	seen := map[[2]string]bool{}
	counter := 0

	for _, line := range lines {
		var src, dst *shapeInfo
		srcDist, dstDist := math.Inf(1), math.Inf(1)
		for _, s := range shapes {
			cx, cy := s.bbox.center()
			if s.bbox.near(line.start.x, line.start.y, edgeTolerance) {
				if d := math.Hypot(line.start.x-cx, line.start.y-cy); d < srcDist {
					srcDist = d
					src = s
				}
			}
			if s.bbox.near(line.end.x, line.end.y, edgeTolerance) {
				if d := math.Hypot(line.end.x-cx, line.end.y-cy); d < dstDist {
					dstDist = d
					dst = s
				}
			}
		}

		if src == nil || dst == nil || src.id == dst.id {
			continue
		}
		key := [2]string{src.id, dst.id}
		if seen[key] {
			continue
		}
		seen[key] = true
		counter++

		style := ast.Solid
		if line.thick {
			style = ast.Thick
		} else if line.dashed {
			style = ast.Dashed
		}

		edges = append(edges, ast.Edge{
			ID:         fmt.Sprintf("edge_%d", counter),
			Source:     src.id,
			Target:     dst.id,
			Style:      style,
			ArrowEnd:   line.hasArrow,
			ArrowStart: line.startArrow,
		})
	}
	return edges
}

func detectDirection(shapes []*shapeInfo) ast.Direction {
	if len(shapes) < 2 {
		return ast.TB
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range shapes {
		cx, cy := s.bbox.center()
		minX, maxX = math.Min(minX, cx), math.Max(maxX, cx)
		minY, maxY = math.Min(minY, cy), math.Max(maxY, cy)
	}
	if maxY-minY >= maxX-minX {
		return ast.TB
	}
	return ast.LR
}
