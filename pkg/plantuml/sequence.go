package plantuml

import (
	"regexp"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

var (
	participantAliasRe = regexp.MustCompile(`(?i)^(?:participant|actor|entity|boundary|control|database|collections|queue)\s+"([^"]+)"\s+as\s+(\w+)`)
	participantBareRe  = regexp.MustCompile(`(?i)^(?:participant|actor|entity|boundary|control|database|collections|queue)\s+"?([^"#]+?)"?\s*(?:#\w+)?\s*$`)
	messageRe          = regexp.MustCompile(`^(\w+)\s+(<?(?:-+|\.\.|==)(?:\[#[^\]]+\])?(?:-+|\.\.|==)?>?>?[xo]?(?:\+\+|--)?)\s+(\w+)(?:\s*:\s*(.*))?$`)

	nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

type pumlMessage struct {
	src, dst   string
	label      string
	style      string
	arrowStart bool
	arrowEnd   bool
}

// sequenceParser collects declared participants in order of first
// appearance; message endpoints that were never declared become implicit
// participants, as PlantUML itself allows.
type sequenceParser struct {
	order    []string
	labels   map[string]string
	messages []pumlMessage
}

func newSequenceParser() *sequenceParser {
	return &sequenceParser{labels: map[string]string{}}
}

func (p *sequenceParser) declare(alias, label string) {
	if _, ok := p.labels[alias]; !ok {
		p.order = append(p.order, alias)
	}
	p.labels[alias] = label
}

func (p *sequenceParser) feed(line string) {
	if m := participantAliasRe.FindStringSubmatch(line); m != nil {
		p.declare(m[2], m[1])
		return
	}

	if m := participantBareRe.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		alias := nonAlnumRe.ReplaceAllString(name, "")
		p.declare(alias, name)
		return
	}

	if m := messageRe.FindStringSubmatch(line); m != nil {
		src, dst := m[1], m[3]
		if _, ok := p.labels[src]; !ok {
			p.declare(src, src)
		}
		if _, ok := p.labels[dst]; !ok {
			p.declare(dst, dst)
		}
		parsed := ParseArrow(m[2])
		p.messages = append(p.messages, pumlMessage{
			src:        src,
			dst:        dst,
			label:      strings.TrimSpace(m[4]),
			style:      parsed.Style,
			arrowStart: parsed.HasStart,
			arrowEnd:   parsed.HasEnd,
		})
	}
}

func parseSequence(content string) *sequenceParser {
	p := newSequenceParser()
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if skipLine(line) {
			continue
		}
		p.feed(line)
	}
	return p
}

func (p *sequenceParser) toAST() *ast.AST {
	out := ast.New(ast.Sequence)
	for _, alias := range p.order {
		out.Nodes = append(out.Nodes, ast.Node{
			ID:       alias,
			Label:    p.labels[alias],
			Shape:    ast.Rectangle,
			Metadata: map[string]any{"role": "participant"},
		})
	}
	for i, msg := range p.messages {
		out.Edges = append(out.Edges, ast.Edge{
			ID:            edgeID("msg", i+1),
			Source:        msg.src,
			Target:        msg.dst,
			Label:         msg.label,
			Style:         ast.EdgeStyle(msg.style),
			ArrowStart:    msg.arrowStart,
			ArrowEnd:      msg.arrowEnd,
			SequenceOrder: i + 1,
		})
	}
	out.Metadata["source_format"] = "plantuml"
	out.Metadata["plantuml_type"] = "sequence"
	return out
}
