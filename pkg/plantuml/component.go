package plantuml

import (
	"regexp"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

type pumlNode struct {
	id          string
	label       string
	shape       ast.Shape
	color       string
	parentGroup string
}

type pumlEdge struct {
	src, dst   string
	label      string
	style      string
	arrowStart bool
	arrowEnd   bool
}

type pumlGroup struct {
	id       string
	label    string
	children []string
}

var (
	groupOpenRe = regexp.MustCompile(`(?i)^(package|node|folder|cloud|rectangle|frame)\s+"?([^"{]*)"?\s*(?:as\s+(\w+))?\s*(?:#(\w+))?\s*\{`)
	bracketRe   = regexp.MustCompile(`^\[([^\]]+)\]\s*(?:as\s+(\w+))?\s*(?:#(\w+))?\s*$`)
	keywordRe   = regexp.MustCompile(`(?i)^(?:component|database|cloud|actor|interface)\s+"?([^"]*?)"?\s*(?:as\s+(\w+))?\s*(?:#(\w+))?$`)
	connectRe   = regexp.MustCompile(`^(?:\[([^\]]+)\]|(\w+))\s*([<]?[-=.]+[>]?)\s*(?:\[([^\]]+)\]|(\w+))(?:\s*:\s*(.*))?`)
	firstWordRe = regexp.MustCompile(`^(\w+)`)

	nonIdentRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

func safeID(name string) string {
	sid := strings.Trim(nonIdentRe.ReplaceAllString(name, "_"), "_")
	if len(sid) > 25 {
		sid = sid[:25]
	}
	if sid == "" || (sid[0] >= '0' && sid[0] <= '9') {
		sid = "n_" + sid
	}
	return sid
}

var keywordShapes = map[string]ast.Shape{
	"database":  ast.Database,
	"actor":     ast.Circle,
	"interface": ast.Circle,
}

// componentParser is a line-oriented state machine over component and
// deployment diagrams. Nesting is tracked with an explicit group stack
// so package/node blocks can enclose each other.
type componentParser struct {
	nodeOrder []string
	nodes     map[string]*pumlNode
	edges     []pumlEdge

	groupOrder []string
	groups     map[string]*pumlGroup

	current string
	stack   []string
}

func newComponentParser() *componentParser {
	return &componentParser{
		nodes:  map[string]*pumlNode{},
		groups: map[string]*pumlGroup{},
	}
}

func (p *componentParser) addNode(n *pumlNode) {
	if _, seen := p.nodes[n.id]; !seen {
		p.nodeOrder = append(p.nodeOrder, n.id)
	}
	p.nodes[n.id] = n
	if p.current != "" {
		if g, ok := p.groups[p.current]; ok {
			g.children = append(g.children, n.id)
		}
	}
}

func (p *componentParser) ensureNode(id, label string) {
	if _, ok := p.nodes[id]; ok {
		return
	}
	p.nodeOrder = append(p.nodeOrder, id)
	p.nodes[id] = &pumlNode{id: id, label: label, shape: ast.Rectangle}
}

func (p *componentParser) feed(line string) {
	if m := groupOpenRe.FindStringSubmatch(line); m != nil {
		label := strings.TrimSpace(m[2])
		gid := m[3]
		if gid == "" {
			gid = safeID(label)
		}
		if _, seen := p.groups[gid]; !seen {
			p.groupOrder = append(p.groupOrder, gid)
		}
		p.groups[gid] = &pumlGroup{id: gid, label: label}
		p.stack = append(p.stack, p.current)
		p.current = gid
		return
	}

	if line == "}" {
		if n := len(p.stack); n > 0 {
			p.current = p.stack[n-1]
			p.stack = p.stack[:n-1]
		}
		return
	}

	if m := bracketRe.FindStringSubmatch(line); m != nil {
		label := strings.TrimSpace(m[1])
		nid := m[2]
		if nid == "" {
			nid = safeID(label)
		}
		p.addNode(&pumlNode{
			id:          nid,
			label:       label,
			shape:       ast.Rectangle,
			color:       ResolveColor(m[3]),
			parentGroup: p.current,
		})
		return
	}

	if m := keywordRe.FindStringSubmatch(line); m != nil {
		kind := strings.ToLower(firstWordRe.FindString(line))
		shape, ok := keywordShapes[kind]
		if !ok {
			shape = ast.Rectangle
		}
		label := strings.TrimSpace(m[1])
		nid := m[2]
		if nid == "" {
			nid = safeID(label)
		}
		p.addNode(&pumlNode{
			id:          nid,
			label:       label,
			shape:       shape,
			color:       ResolveColor(m[3]),
			parentGroup: p.current,
		})
		return
	}

	if m := connectRe.FindStringSubmatch(line); m != nil {
		srcName := m[1]
		if srcName == "" {
			srcName = m[2]
		}
		dstName := m[4]
		if dstName == "" {
			dstName = m[5]
		}
		if srcName == "" || dstName == "" {
			return
		}
		srcID, dstID := safeID(srcName), safeID(dstName)
		p.ensureNode(srcID, srcName)
		p.ensureNode(dstID, dstName)
		parsed := ParseArrow(m[3])
		p.edges = append(p.edges, pumlEdge{
			src:        srcID,
			dst:        dstID,
			label:      strings.TrimSpace(m[6]),
			style:      parsed.Style,
			arrowStart: parsed.HasStart,
			arrowEnd:   parsed.HasEnd,
		})
	}
}

func parseComponent(content string) *componentParser {
	p := newComponentParser()
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if skipLine(line) {
			continue
		}
		p.feed(line)
	}
	return p
}

func (p *componentParser) toAST() *ast.AST {
	out := ast.New(ast.Flowchart)
	for _, id := range p.nodeOrder {
		n := p.nodes[id]
		out.Nodes = append(out.Nodes, ast.Node{
			ID:          n.id,
			Label:       n.label,
			Shape:       n.shape,
			FillColor:   n.color,
			ParentGroup: n.parentGroup,
		})
	}
	for i, e := range p.edges {
		out.Edges = append(out.Edges, ast.Edge{
			ID:         edgeID("edge", i+1),
			Source:     e.src,
			Target:     e.dst,
			Label:      e.label,
			Style:      ast.EdgeStyle(e.style),
			ArrowStart: e.arrowStart,
			ArrowEnd:   e.arrowEnd,
		})
	}
	for _, id := range p.groupOrder {
		g := p.groups[id]
		out.Groups = append(out.Groups, ast.Group{
			ID:       g.id,
			Label:    g.label,
			Children: append([]string(nil), g.children...),
			Style:    ast.Solid,
		})
	}
	out.Metadata["source_format"] = "plantuml"
	out.Metadata["plantuml_type"] = "component"
	return out
}
