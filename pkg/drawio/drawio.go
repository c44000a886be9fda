// Package drawio converts Draw.io (mxGraph) diagram files into the
// canonical diagram AST. It handles multi-page files, the compressed
// <diagram> payload encodings, container/swimlane grouping, and the
// Draw.io style vocabulary for shapes, arrows, and colors.
//
// Extraction is permissive: malformed input yields an AST tagged with a
// metadata error, never a Go error. I/O failures are real errors.
package drawio

import (
	"fmt"
	"os"
	"strconv"

	"github.com/beevik/etree"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/ast"
)

// ConvertFile parses a .drawio file and returns an enriched AST for the
// requested page. An out-of-range page index falls back to page 0.
func ConvertFile(path string, pageIndex int) (*ast.AST, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := Convert(string(content), pageIndex)
	out.Metadata["source_file"] = path
	return out, nil
}

// Convert parses Draw.io file content and returns an enriched AST.
func Convert(content string, pageIndex int) *ast.AST {
	logger := log.Default()

	pages := ExtractDiagramPages(content)
	if len(pages) == 0 {
		logger.Warn("no diagram pages found")
		out := ast.New(ast.Flowchart)
		out.Metadata["source_format"] = "drawio"
		out.SetError("no_pages")
		return out
	}

	if pageIndex < 0 || pageIndex >= len(pages) {
		logger.Warn("page index out of range, using page 0", "requested", pageIndex, "pages", len(pages))
		pageIndex = 0
	}

	root := parseDiagramXML(pages[pageIndex])
	if root == nil {
		logger.Warn("could not parse diagram XML")
		out := ast.New(ast.Flowchart)
		out.Metadata["source_format"] = "drawio"
		out.SetError("xml_parse_failed")
		return out
	}

	out := extractGraphElements(root)
	out.Metadata["page_index"] = pageIndex
	out.Metadata["total_pages"] = len(pages)

	logger.Debug("drawio extraction complete",
		"nodes", len(out.Nodes), "edges", len(out.Edges), "groups", len(out.Groups))

	return ast.Enrich(out)
}

func attrFloat(el *etree.Element, name string) float64 {
	v, err := strconv.ParseFloat(el.SelectAttrValue(name, "0"), 64)
	if err != nil {
		return 0
	}
	return v
}

// extractGraphElements walks mxCell elements in two passes: the first
// builds the parent/child map so containers can be recognized, the second
// classifies each cell as edge, group, or node.
func extractGraphElements(root *etree.Element) *ast.AST {
	cells := root.FindElements("//mxCell")

	parentChildren := map[string][]string{}
	for _, cell := range cells {
		id := cell.SelectAttrValue("id", "")
		parent := cell.SelectAttrValue("parent", "")
		if id != "" && parent != "" {
			parentChildren[parent] = append(parentChildren[parent], id)
		}
	}

	var nodes []ast.Node
	var edges []ast.Edge
	groups := map[string]*ast.Group{}
	var groupOrder []string
	edgeCounter := 0

	for _, cell := range cells {
		id := cell.SelectAttrValue("id", "")
		// IDs 0 and 1 are the mxGraph root and default layer.
		if id == "" || id == "0" || id == "1" {
			continue
		}

		source := cell.SelectAttrValue("source", "")
		target := cell.SelectAttrValue("target", "")
		parent := cell.SelectAttrValue("parent", "")
		vertex := cell.SelectAttrValue("vertex", "")
		edgeAttr := cell.SelectAttrValue("edge", "")

		style := ParseStyle(cell.SelectAttrValue("style", ""))
		label := CleanLabel(cell.SelectAttrValue("value", ""))
		shape := DetectShape(style)

		var x, y, w, h float64
		if geom := cell.SelectElement("mxGeometry"); geom != nil {
			x = attrFloat(geom, "x")
			y = attrFloat(geom, "y")
			w = attrFloat(geom, "width")
			h = attrFloat(geom, "height")
		}

		_, isContainer := parentChildren[id]

		switch {
		case edgeAttr == "1" || (source != "" && target != ""):
			edgeCounter++
			edges = append(edges, ast.Edge{
				ID:         fmt.Sprintf("edge_%d", edgeCounter),
				Source:     source,
				Target:     target,
				Label:      label,
				Style:      DetectEdgeStyle(style),
				ArrowStart: HasArrow(style, "start"),
				ArrowEnd:   HasArrow(style, "end"),
			})

		case shape == shapeGroup || isContainer:
			if label == "" && !isContainer {
				continue
			}
			groupLabel := label
			if groupLabel == "" {
				groupLabel = "Group_" + idSuffix(id)
			}
			if _, seen := groups[id]; !seen {
				groupOrder = append(groupOrder, id)
			}
			groups[id] = &ast.Group{
				ID:       id,
				Label:    groupLabel,
				Children: append([]string(nil), parentChildren[id]...),
				Style:    ast.Solid,
			}

		case vertex == "1" || label != "":
			fill, stroke, font := ExtractColors(style)
			nodeLabel := label
			if nodeLabel == "" {
				nodeLabel = "Node_" + idSuffix(id)
			}
			parentGroup := ""
			if parent != "0" && parent != "1" {
				parentGroup = parent
			}
			nodes = append(nodes, ast.Node{
				ID:          id,
				Label:       nodeLabel,
				Shape:       ast.Shape(shape),
				X:           x,
				Y:           y,
				Width:       w,
				Height:      h,
				FillColor:   fill,
				StrokeColor: stroke,
				FontColor:   font,
				ParentGroup: parentGroup,
			})
		}
	}

	// Keep group children consistent with node back-references.
	for _, n := range nodes {
		if n.ParentGroup == "" {
			continue
		}
		if g, ok := groups[n.ParentGroup]; ok && !containsString(g.Children, n.ID) {
			g.Children = append(g.Children, n.ID)
		}
	}

	out := ast.New(ast.Flowchart)
	out.Nodes = nodes
	out.Edges = edges
	for _, gid := range groupOrder {
		out.Groups = append(out.Groups, *groups[gid])
	}
	out.Direction = ast.DetectDirection(nodes)
	out.Metadata["source_format"] = "drawio"
	out.Metadata["extraction_method"] = "xml_parse"
	return out
}

func idSuffix(id string) string {
	if len(id) > 4 {
		return id[len(id)-4:]
	}
	return id
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
