// Package ast defines the canonical intermediate representation for
// architecture diagrams. Every diagram source (Draw.io, SVG, PlantUML)
// produces a DiagramAST, which is serialized to .ast.json and rendered as
// markdown tables or Mermaid for embedding in documentation pages.
//
// The AST is the primary artifact; rendered views are derived from it.
package ast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion is written into every serialized AST. Readers ignore
// unknown fields, so bumping this is additive, not breaking.
const SchemaVersion = "2.0.0"

// DiagramType identifies which rendering and rule logic applies to an AST.
// The set is closed: unknown types are a construction-time error, never a
// silent fallback.
type DiagramType string

const (
	Flowchart DiagramType = "flowchart"
	Sequence  DiagramType = "sequence"
	Class     DiagramType = "class"
	State     DiagramType = "state"
	ER        DiagramType = "er"
)

// ParseDiagramType validates a diagram type string.
func ParseDiagramType(s string) (DiagramType, error) {
	switch DiagramType(s) {
	case Flowchart, Sequence, Class, State, ER:
		return DiagramType(s), nil
	}
	return "", fmt.Errorf("unknown diagram type: %q", s)
}

// Direction is the inferred or declared flow direction of a diagram.
type Direction string

const (
	TB Direction = "TB"
	BT Direction = "BT"
	LR Direction = "LR"
	RL Direction = "RL"
)

// Shape is the canonical node shape vocabulary shared by all extractors.
type Shape string

const (
	Rectangle     Shape = "rectangle"
	Stadium       Shape = "stadium"
	Database      Shape = "database"
	Diamond       Shape = "diamond"
	Circle        Shape = "circle"
	Parallelogram Shape = "parallelogram"
	Hexagon       Shape = "hexagon"
)

// EdgeStyle is the canonical line style vocabulary.
type EdgeStyle string

const (
	Solid  EdgeStyle = "solid"
	Dashed EdgeStyle = "dashed"
	Dotted EdgeStyle = "dotted"
	Thick  EdgeStyle = "thick"
)

// Node is a visual element representing a system component.
// Coordinates are in the source coordinate space; 0 means unknown.
// Color fields are empty when absent or default/white.
type Node struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Shape       Shape          `json:"shape"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	FillColor   string         `json:"fill_color,omitempty"`
	StrokeColor string         `json:"stroke_color,omitempty"`
	FontColor   string         `json:"font_color,omitempty"`
	ParentGroup string         `json:"parent_group,omitempty"`
	Role        string         `json:"role,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Edge is a directed (or bidirectional) connection between two nodes.
// Source and Target may reference a node not present in the AST when
// extraction was imperfect; the quality gate detects this, construction
// does not reject it.
type Edge struct {
	ID            string         `json:"id"`
	Source        string         `json:"source"`
	Target        string         `json:"target"`
	Label         string         `json:"label"`
	Style         EdgeStyle      `json:"style"`
	ArrowStart    bool           `json:"arrow_start"`
	ArrowEnd      bool           `json:"arrow_end"`
	Color         string         `json:"color,omitempty"`
	Protocol      string         `json:"protocol,omitempty"`
	SequenceOrder int            `json:"sequence_order,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Group is a visual container (subgraph, swimlane, package) owning a set
// of child node IDs. Children must stay consistent with each child node's
// ParentGroup back-reference.
type Group struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Children    []string  `json:"children"`
	ParentGroup string    `json:"parent_group,omitempty"`
	Style       EdgeStyle `json:"style"`
	FillColor   string    `json:"fill_color,omitempty"`
	ZoneType    string    `json:"zone_type,omitempty"`
}

// AST is the root aggregate. Node/edge/group order is extraction order and
// carries no rendering meaning. Metadata holds provenance: source_format,
// source_file, extraction_method, confidence scores, color_legend.
type AST struct {
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Groups      []Group        `json:"groups"`
	DiagramType DiagramType    `json:"diagram_type"`
	Direction   Direction      `json:"direction"`
	Metadata    map[string]any `json:"metadata"`
}

// New returns an empty flowchart AST with initialized collections.
func New(dt DiagramType) *AST {
	return &AST{
		Nodes:       []Node{},
		Edges:       []Edge{},
		Groups:      []Group{},
		DiagramType: dt,
		Direction:   TB,
		Metadata:    map[string]any{},
	}
}

// SetError tags the AST as a failed extraction. Extractors return such an
// AST instead of an error for unrecoverable format problems; callers must
// check HasError before trusting the content.
func (a *AST) SetError(code string) {
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	a.Metadata["error"] = code
}

// HasError reports whether extraction recorded a fatal format error.
func (a *AST) HasError() bool {
	if a.Metadata == nil {
		return false
	}
	v, ok := a.Metadata["error"]
	return ok && v != ""
}

// ColorLegend returns the color-to-meaning map from metadata, tolerating
// the map[string]any shape a JSON round trip produces.
func (a *AST) ColorLegend() map[string]string {
	if a.Metadata == nil {
		return nil
	}
	switch legend := a.Metadata["color_legend"].(type) {
	case map[string]string:
		return legend
	case map[string]any:
		out := make(map[string]string, len(legend))
		for k, v := range legend {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

// DetectDirection infers flow direction from node positions: LR when the
// horizontal spread of positioned nodes exceeds 1.5x the vertical spread,
// TB otherwise. Fewer than 2 positioned nodes defaults to TB.
func DetectDirection(nodes []Node) Direction {
	if len(nodes) < 2 {
		return TB
	}
	var xs, ys []float64
	for _, n := range nodes {
		if n.X != 0 || n.Y != 0 {
			xs = append(xs, n.X)
			ys = append(ys, n.Y)
		}
	}
	if len(xs) < 2 {
		return TB
	}
	xSpread := maxOf(xs) - minOf(xs)
	ySpread := maxOf(ys) - minOf(ys)
	if xSpread > ySpread*1.5 {
		return LR
	}
	return TB
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// ToJSON serializes an AST with the current schema version attached.
func ToJSON(a *AST) ([]byte, error) {
	type versioned struct {
		AST
		SchemaVersion string `json:"schema_version"`
	}
	return json.MarshalIndent(versioned{AST: *a, SchemaVersion: SchemaVersion}, "", "  ")
}

// FromJSON deserializes an AST, ignoring unknown fields and applying the
// documented defaults for missing optional ones (shape=rectangle,
// style=solid, arrow_end=true, diagram_type=flowchart, direction=TB).
func FromJSON(data []byte) (*AST, error) {
	var raw struct {
		Nodes       []json.RawMessage `json:"nodes"`
		Edges       []json.RawMessage `json:"edges"`
		Groups      []json.RawMessage `json:"groups"`
		DiagramType string            `json:"diagram_type"`
		Direction   string            `json:"direction"`
		Metadata    map[string]any    `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing AST JSON: %w", err)
	}

	out := &AST{
		Nodes:       make([]Node, 0, len(raw.Nodes)),
		Edges:       make([]Edge, 0, len(raw.Edges)),
		Groups:      make([]Group, 0, len(raw.Groups)),
		DiagramType: Flowchart,
		Direction:   TB,
		Metadata:    raw.Metadata,
	}
	if raw.DiagramType != "" {
		out.DiagramType = DiagramType(raw.DiagramType)
	}
	if raw.Direction != "" {
		out.Direction = Direction(raw.Direction)
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}

	for i, rn := range raw.Nodes {
		n := Node{Shape: Rectangle}
		if err := json.Unmarshal(rn, &n); err != nil {
			return nil, fmt.Errorf("parsing nodes[%d]: %w", i, err)
		}
		if n.Shape == "" {
			n.Shape = Rectangle
		}
		out.Nodes = append(out.Nodes, n)
	}
	for i, re := range raw.Edges {
		e := Edge{Style: Solid, ArrowEnd: true}
		if err := json.Unmarshal(re, &e); err != nil {
			return nil, fmt.Errorf("parsing edges[%d]: %w", i, err)
		}
		if e.Style == "" {
			e.Style = Solid
		}
		out.Edges = append(out.Edges, e)
	}
	for i, rg := range raw.Groups {
		g := Group{Style: Solid}
		if err := json.Unmarshal(rg, &g); err != nil {
			return nil, fmt.Errorf("parsing groups[%d]: %w", i, err)
		}
		if g.Style == "" {
			g.Style = Solid
		}
		out.Groups = append(out.Groups, g)
	}
	return out, nil
}

// Save writes an AST to a .ast.json file, creating parent directories.
// The write is atomic (temp file + rename) so a crash never leaves a
// partial artifact behind.
func Save(a *AST, path string) error {
	data, err := ToJSON(a)
	if err != nil {
		return fmt.Errorf("serializing AST: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".ast-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Load reads a .ast.json file into an AST.
func Load(path string) (*AST, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return FromJSON(data)
}
