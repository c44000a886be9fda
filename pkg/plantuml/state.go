package plantuml

import (
	"regexp"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

var (
	stateAliasRe = regexp.MustCompile(`(?i)^state\s+"?([^"]+?)"?\s+as\s+(\w+)`)
	transitionRe = regexp.MustCompile(`^(\[\*\]|\w+)\s*-+>\s*(\[\*\]|\w+)(?:\s*:\s*(.*))?`)
)

type pumlTransition struct {
	src, dst string
	label    string
}

// stateParser reads state declarations and transitions. The [*] pseudo
// state marks entry and exit and is kept as a literal node ID so the
// renderer can emit it back.
type stateParser struct {
	order       []string
	labels      map[string]string
	transitions []pumlTransition
}

func newStateParser() *stateParser {
	return &stateParser{labels: map[string]string{}}
}

func (p *stateParser) declare(id, label string) {
	if _, ok := p.labels[id]; !ok {
		p.order = append(p.order, id)
	}
	p.labels[id] = label
}

func (p *stateParser) feed(line string) {
	if m := stateAliasRe.FindStringSubmatch(line); m != nil {
		p.declare(m[2], m[1])
		return
	}

	if m := transitionRe.FindStringSubmatch(line); m != nil {
		src, dst := m[1], m[2]
		p.transitions = append(p.transitions, pumlTransition{
			src:   src,
			dst:   dst,
			label: strings.TrimSpace(m[3]),
		})
		if _, ok := p.labels[src]; !ok && src != "[*]" {
			p.declare(src, src)
		}
		if _, ok := p.labels[dst]; !ok && dst != "[*]" {
			p.declare(dst, dst)
		}
	}
}

func parseState(content string) *stateParser {
	p := newStateParser()
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if skipLine(line) {
			continue
		}
		p.feed(line)
	}
	return p
}

func (p *stateParser) toAST() *ast.AST {
	out := ast.New(ast.State)
	for _, id := range p.order {
		out.Nodes = append(out.Nodes, ast.Node{
			ID:    id,
			Label: p.labels[id],
			Shape: ast.Rectangle,
		})
	}
	for i, t := range p.transitions {
		out.Edges = append(out.Edges, ast.Edge{
			ID:       edgeID("trans", i+1),
			Source:   t.src,
			Target:   t.dst,
			Label:    t.label,
			Style:    ast.Solid,
			ArrowEnd: true,
		})
	}
	out.Metadata["source_format"] = "plantuml"
	out.Metadata["plantuml_type"] = "state"
	return out
}
