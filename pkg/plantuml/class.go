package plantuml

import (
	"regexp"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

type pumlClass struct {
	name       string
	stereotype string
	members    []string
	methods    []string
}

type pumlRelation struct {
	src, dst string
	relType  string
	label    string
}

var (
	classOpenRe = regexp.MustCompile(`(?i)^(?:(abstract)\s+)?(?:class|interface|enum)\s+"?(\w+)"?\s*(?:<<(\w+)>>)?\s*\{`)
	classDeclRe = regexp.MustCompile(`(?i)^(?:(abstract)\s+)?(?:class|interface|enum)\s+"?(\w+)"?\s*(?:<<(\w+)>>)?$`)
	relationRe  = regexp.MustCompile(`^(\w+)\s+([<>|.*o#x+\-]+)\s+(\w+)(?:\s*:\s*(.*))?`)
)

// classifyRelation maps a class-diagram arrow to a relation kind.
// Triangle heads mean inheritance, dotted triangle means interface
// realization, star and circle mark composition and aggregation.
func classifyRelation(arrow string) string {
	if strings.Contains(arrow, "|>") || strings.Contains(arrow, "<|") {
		if strings.Contains(arrow, "..") {
			return "implements"
		}
		return "extends"
	}
	if strings.Contains(arrow, "*") {
		return "composition"
	}
	if strings.Contains(arrow, "o") {
		return "aggregation"
	}
	if strings.Contains(arrow, "..") {
		return "dependency"
	}
	return "association"
}

// classParser accumulates class bodies line by line; currentClass is
// the open class block member/method lines attach to.
type classParser struct {
	order        []string
	classes      map[string]*pumlClass
	relations    []pumlRelation
	currentClass string
}

func newClassParser() *classParser {
	return &classParser{classes: map[string]*pumlClass{}}
}

func (p *classParser) declare(name, stereotype string) *pumlClass {
	if c, ok := p.classes[name]; ok {
		if stereotype != "" {
			c.stereotype = stereotype
		}
		return c
	}
	c := &pumlClass{name: name, stereotype: stereotype}
	p.order = append(p.order, name)
	p.classes[name] = c
	return c
}

func stereotypeFor(line, abstract, stereo string) string {
	lower := strings.ToLower(line)
	kind := ""
	if strings.Contains(lower, "interface") {
		kind = "interface"
	} else if strings.Contains(lower, "enum") {
		kind = "enum"
	}
	if abstract != "" {
		kind = "abstract"
	}
	if stereo != "" {
		kind = strings.ToLower(stereo)
	}
	return kind
}

func (p *classParser) feed(line string) {
	if m := classOpenRe.FindStringSubmatch(line); m != nil {
		p.declare(m[2], stereotypeFor(line, m[1], m[3]))
		p.currentClass = m[2]
		return
	}

	if m := classDeclRe.FindStringSubmatch(line); m != nil {
		p.declare(m[2], stereotypeFor(line, m[1], m[3]))
		return
	}

	if line == "}" {
		p.currentClass = ""
		return
	}

	if p.currentClass != "" {
		c := p.classes[p.currentClass]
		if strings.Contains(line, "(") && strings.Contains(line, ")") {
			c.methods = append(c.methods, line)
		} else {
			switch line {
			case "{", "}", "--", "==", "..":
			default:
				c.members = append(c.members, line)
			}
		}
		return
	}

	if m := relationRe.FindStringSubmatch(line); m != nil {
		p.relations = append(p.relations, pumlRelation{
			src:     m[1],
			dst:     m[3],
			relType: classifyRelation(m[2]),
			label:   strings.TrimSpace(m[4]),
		})
		p.declare(m[1], "")
		p.declare(m[3], "")
	}
}

func parseClass(content string) *classParser {
	p := newClassParser()
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if skipLine(line) {
			continue
		}
		p.feed(line)
	}
	return p
}

func (p *classParser) toAST() *ast.AST {
	out := ast.New(ast.Class)
	for _, name := range p.order {
		c := p.classes[name]
		out.Nodes = append(out.Nodes, ast.Node{
			ID:    c.name,
			Label: c.name,
			Shape: ast.Rectangle,
			Metadata: map[string]any{
				"stereotype": c.stereotype,
				"members":    append([]string(nil), c.members...),
				"methods":    append([]string(nil), c.methods...),
			},
		})
	}
	for i, r := range p.relations {
		out.Edges = append(out.Edges, ast.Edge{
			ID:       edgeID("rel", i+1),
			Source:   r.src,
			Target:   r.dst,
			Label:    r.label,
			Style:    ast.Solid,
			ArrowEnd: true,
			Metadata: map[string]any{"rel_type": r.relType},
		})
	}
	out.Metadata["source_format"] = "plantuml"
	out.Metadata["plantuml_type"] = "class"
	return out
}
