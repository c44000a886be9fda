package ast

import (
	"regexp"
	"strings"
)

// Semantic inference is deterministic and keyword-based. Pattern order is
// load-bearing: more specific entries (mTLS) must precede generic ones
// (TLS), and word boundaries guard against substring misfires such as HTTP
// matching inside HTTPS. First match wins.

type labelPattern struct {
	re    *regexp.Regexp
	value string
}

var rolePatterns = []labelPattern{
	{regexp.MustCompile(`(?i)\b(postgres|mysql|mongo|dynamo|cassandra|redis\s*db|database|data\s*store|aurora|rds)\b`), "datastore"},
	{regexp.MustCompile(`(?i)\b(api\s*gate\s*way|gateway|apigw|api\s*gw|kong|zuul|envoy\s*proxy)\b`), "gateway"},
	{regexp.MustCompile(`(?i)\b(queue|mq|kafka|rabbit\s*mq|sqs|kinesis|pub\s*sub|event\s*bus|topic|nats)\b`), "queue"},
	{regexp.MustCompile(`(?i)\b(cache|redis|memcache[d]?|cdn|edge\s*cache|varnish)\b`), "cache"},
	{regexp.MustCompile(`(?i)\b(load\s*balanc|lb|nginx|haproxy|alb|nlb|elb|traefik)\b`), "load_balancer"},
	{regexp.MustCompile(`(?i)\b(user|actor|client|browser|mobile|end.?user|customer)\b`), "actor"},
	{regexp.MustCompile(`(?i)\b(external|third.?party|vendor|partner|saas|3rd)\b`), "external"},
	{regexp.MustCompile(`(?i)\b(interface|api|endpoint|rest\s*api|graphql)\b`), "interface"},
}

var protocolPatterns = []labelPattern{
	{regexp.MustCompile(`(?i)\bmtls\b`), "mTLS"},
	{regexp.MustCompile(`(?i)\bhttps\b`), "HTTPS"},
	{regexp.MustCompile(`(?i)\bhttp\b`), "HTTP"},
	{regexp.MustCompile(`(?i)\bgrpc\b`), "gRPC"},
	{regexp.MustCompile(`(?i)\bamqp\b`), "AMQP"},
	{regexp.MustCompile(`(?i)\bmqtt\b`), "MQTT"},
	{regexp.MustCompile(`(?i)\brest\b`), "REST"},
	{regexp.MustCompile(`(?i)\bgraphql\b`), "GraphQL"},
	{regexp.MustCompile(`(?i)\bwebsocket[s]?\b`), "WebSocket"},
	{regexp.MustCompile(`(?i)\btls\b`), "TLS"},
	{regexp.MustCompile(`(?i)\btcp\b`), "TCP"},
	{regexp.MustCompile(`(?i)\bjdbc\b`), "JDBC"},
	{regexp.MustCompile(`(?i)\bsoap\b`), "SOAP"},
	{regexp.MustCompile(`(?i)\budp\b`), "UDP"},
	{regexp.MustCompile(`(?i)\bkafka\b`), "Kafka"},
}

var zonePatterns = []labelPattern{
	{regexp.MustCompile(`(?i)\b(internal|private|intranet)\b`), "internal"},
	{regexp.MustCompile(`(?i)\b(external|public|internet)\b`), "external"},
	{regexp.MustCompile(`(?i)\b(dmz|demilitarized)\b`), "dmz"},
	{regexp.MustCompile(`(?i)\b(aws|azure|gcp|cloud)\b`), "cloud"},
	{regexp.MustCompile(`(?i)\b(trust.?boundar|security.?zone|perimeter)\b`), "trust_boundary"},
}

var actorShapeRe = regexp.MustCompile(`(?i)\b(actor|user)\b`)

// InferNodeRole classifies a node's architectural role. Shape overrides
// come first (database shape is always a datastore, diamond a decision),
// then the ordered label patterns; the default role is service.
func InferNodeRole(label string, shape Shape) string {
	if shape == Database {
		return "datastore"
	}
	if shape == Diamond {
		return "decision"
	}
	if shape == Circle && actorShapeRe.MatchString(label) {
		return "actor"
	}
	for _, p := range rolePatterns {
		if p.re.MatchString(label) {
			return p.value
		}
	}
	return "service"
}

// InferEdgeProtocol extracts a communication protocol from an edge label.
// Returns "" when no known protocol keyword is present.
func InferEdgeProtocol(label string) string {
	if label == "" {
		return ""
	}
	for _, p := range protocolPatterns {
		if p.re.MatchString(label) {
			return p.value
		}
	}
	return ""
}

// InferZoneType classifies a group label into a security/network zone.
func InferZoneType(label string) string {
	if label == "" {
		return ""
	}
	for _, p := range zonePatterns {
		if p.re.MatchString(label) {
			return p.value
		}
	}
	return ""
}

// InferColorLegend groups nodes by fill color and picks the most frequent
// role per color as that color's meaning (first-seen role wins ties), then
// overlays group zone colors.
func InferColorLegend(nodes []Node, groups []Group) map[string]string {
	type colorStat struct {
		counts map[string]int
		order  []string
	}
	stats := map[string]*colorStat{}
	var colorOrder []string

	for _, n := range nodes {
		if n.FillColor == "" || n.Role == "" {
			continue
		}
		color := strings.ToLower(n.FillColor)
		st, ok := stats[color]
		if !ok {
			st = &colorStat{counts: map[string]int{}}
			stats[color] = st
			colorOrder = append(colorOrder, color)
		}
		if st.counts[n.Role] == 0 {
			st.order = append(st.order, n.Role)
		}
		st.counts[n.Role]++
	}

	legend := map[string]string{}
	for _, color := range colorOrder {
		st := stats[color]
		dominant := ""
		best := 0
		for _, role := range st.order {
			if st.counts[role] > best {
				best = st.counts[role]
				dominant = role
			}
		}
		legend[color] = dominant
	}

	for _, g := range groups {
		if g.FillColor != "" && g.ZoneType != "" {
			legend[strings.ToLower(g.FillColor)] = g.ZoneType
		}
	}
	return legend
}

// Enrich returns a semantically enriched copy of the AST: node roles, edge
// protocols, group zone types, and the color legend are populated where
// empty. The input is left untouched; running Enrich on its own output is
// a no-op beyond the copy.
func Enrich(a *AST) *AST {
	out := a.Clone()

	for i := range out.Nodes {
		if out.Nodes[i].Role == "" {
			out.Nodes[i].Role = InferNodeRole(out.Nodes[i].Label, out.Nodes[i].Shape)
		}
	}
	for i := range out.Edges {
		if out.Edges[i].Protocol == "" {
			out.Edges[i].Protocol = InferEdgeProtocol(out.Edges[i].Label)
		}
	}
	for i := range out.Groups {
		if out.Groups[i].ZoneType == "" {
			out.Groups[i].ZoneType = InferZoneType(out.Groups[i].Label)
		}
	}

	legend := InferColorLegend(out.Nodes, out.Groups)
	if len(legend) > 0 {
		if out.Metadata == nil {
			out.Metadata = map[string]any{}
		}
		existing := out.ColorLegend()
		merged := map[string]string{}
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range legend {
			merged[k] = v
		}
		out.Metadata["color_legend"] = merged
	}
	return out
}

// Clone returns a deep copy of the AST.
func (a *AST) Clone() *AST {
	out := &AST{
		Nodes:       make([]Node, len(a.Nodes)),
		Edges:       make([]Edge, len(a.Edges)),
		Groups:      make([]Group, len(a.Groups)),
		DiagramType: a.DiagramType,
		Direction:   a.Direction,
		Metadata:    cloneMap(a.Metadata),
	}
	copy(out.Nodes, a.Nodes)
	copy(out.Edges, a.Edges)
	copy(out.Groups, a.Groups)
	for i := range out.Nodes {
		out.Nodes[i].Metadata = cloneMap(out.Nodes[i].Metadata)
	}
	for i := range out.Edges {
		out.Edges[i].Metadata = cloneMap(out.Edges[i].Metadata)
	}
	for i := range out.Groups {
		out.Groups[i].Children = append([]string(nil), out.Groups[i].Children...)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
