package plantuml

import (
	"regexp"
	"strings"
)

// namedColors maps PlantUML color keywords to hex. PlantUML accepts the
// full X11 set; this covers the names that show up in architecture
// diagrams in practice.
var namedColors = map[string]string{
	"red": "#FF0000", "blue": "#0000FF", "green": "#008000",
	"orange": "#FFA500", "yellow": "#FFFF00", "purple": "#800080",
	"pink": "#FFC0CB", "black": "#000000", "white": "#FFFFFF",
	"gray": "#808080", "grey": "#808080",
	"lightblue": "#ADD8E6", "darkblue": "#00008B",
	"lightgreen": "#90EE90", "darkgreen": "#006400",
	"lightgray": "#D3D3D3", "lightgrey": "#D3D3D3",
	"darkgray": "#A9A9A9", "darkgrey": "#A9A9A9",
	"cyan": "#00FFFF", "magenta": "#FF00FF",
	"brown": "#A52A2A", "navy": "#000080",
	"teal": "#008080", "maroon": "#800000",
	"olive": "#808000", "aqua": "#00FFFF",
	"coral": "#FF7F50", "salmon": "#FA8072",
	"gold": "#FFD700", "silver": "#C0C0C0",
	"skyblue": "#87CEEB", "tomato": "#FF6347",
	"wheat": "#F5DEB3", "beige": "#F5F5DC",
	"ivory": "#FFFFF0", "linen": "#FAF0E6",
	"crimson": "#DC143C", "indigo": "#4B0082",
}

var hexColorRe = regexp.MustCompile(`^[0-9a-fA-F]{3,8}$`)

// ResolveColor resolves a PlantUML color token (#hex, #Name, or bare
// name) to a hex string. Unknown names resolve to empty.
func ResolveColor(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return ""
	}
	if hexColorRe.MatchString(s) {
		return "#" + s
	}
	return namedColors[strings.ToLower(s)]
}

// ParsedArrow is the decoded form of a PlantUML arrow token such as
// "-->", "<-->", "-[#red]->", "->x" or "->++".
type ParsedArrow struct {
	Style    string
	HasStart bool
	HasEnd   bool
	Color    string
	Lost     bool
	Activate int
}

var (
	arrowColorRe    = regexp.MustCompile(`\[#[^\]]+\]`)
	arrowColorCapRe = regexp.MustCompile(`\[#([^\]]+)\]`)
	activateRe      = regexp.MustCompile(`[>x]\+\+$`)
	deactivateRe    = regexp.MustCompile(`[>x]--$`)
	lostRe          = regexp.MustCompile(`[-.>=]x$`)
	circleEndRe     = regexp.MustCompile(`[-.>=]o$`)
	allDashesRe     = regexp.MustCompile(`^-+$`)
)

// ParseArrow decodes an arrow token. Resolution order matters: inline
// color first, then activation suffixes, then the lost-message x and
// circle o terminators, and only then the head glyphs and line core.
func ParseArrow(arrow string) ParsedArrow {
	arrow = strings.TrimSpace(arrow)
	result := ParsedArrow{Style: "solid", HasEnd: true}

	if m := arrowColorCapRe.FindStringSubmatch(arrow); m != nil {
		result.Color = ResolveColor(m[1])
		arrow = arrowColorRe.ReplaceAllString(arrow, "")
	}

	if activateRe.MatchString(arrow) {
		result.Activate = 1
		arrow = arrow[:len(arrow)-2]
	} else if deactivateRe.MatchString(arrow) {
		result.Activate = -1
		arrow = arrow[:len(arrow)-2]
	}

	// A trailing x is a lost message: the arrow has no delivered end.
	if lostRe.MatchString(arrow) {
		result.Lost = true
		result.HasEnd = false
		arrow = arrow[:len(arrow)-1]
	}

	if circleEndRe.MatchString(arrow) {
		arrow = arrow[:len(arrow)-1]
	}

	result.HasStart = strings.HasPrefix(arrow, "<")
	if !result.Lost {
		result.HasEnd = strings.HasSuffix(arrow, ">")
	}

	core := strings.TrimRight(strings.TrimLeft(arrow, "<"), ">")
	switch {
	case strings.Contains(core, "=="):
		result.Style = "thick"
	case strings.Contains(core, ".."):
		result.Style = "dotted"
	case len(core) >= 2 && allDashesRe.MatchString(core):
		result.Style = "dashed"
	default:
		result.Style = "solid"
	}

	return result
}
