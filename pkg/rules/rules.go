// Package rules deterministically derives governance findings from
// enriched diagram ASTs: transport security, zone boundaries, role
// presence, and connectivity violations. No inference beyond what the
// diagram structurally shows.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/archsight/diagast/pkg/ast"
)

// Severity codes, ordered most to least severe.
const (
	SevCritical = "C"
	SevHigh     = "H"
	SevMedium   = "M"
	SevLow      = "L"
)

// Rule is one structural governance finding. Required is "Y" for rules
// a reviewer must confirm, "N" for informational ones. ASTCondition is
// the machine-readable restatement used as the dedup key together with
// Name.
type Rule struct {
	Name         string
	Severity     string
	Required     string
	Keywords     string
	Condition    string
	ASTCondition string
	Source       string
}

var (
	secureProtocols   = map[string]bool{"HTTPS": true, "MTLS": true, "TLS": true, "GRPC": true}
	insecureProtocols = map[string]bool{"HTTP": true}
)

func deriveProtocolRules(edges []ast.Edge) []Rule {
	protocols := map[string]bool{}
	for _, e := range edges {
		if e.Protocol != "" {
			protocols[strings.ToUpper(e.Protocol)] = true
		}
	}
	if len(protocols) == 0 {
		return nil
	}

	var usedSecure, usedInsecure, other []string
	for p := range protocols {
		switch {
		case secureProtocols[p]:
			usedSecure = append(usedSecure, p)
		case insecureProtocols[p]:
			usedInsecure = append(usedInsecure, p)
		default:
			other = append(other, p)
		}
	}
	sort.Strings(usedSecure)
	sort.Strings(usedInsecure)
	sort.Strings(other)

	var out []Rule
	if len(usedSecure) > 0 && len(usedInsecure) == 0 {
		lowered := make([]string, len(usedSecure))
		for i, p := range usedSecure {
			lowered[i] = strings.ToLower(p)
		}
		out = append(out, Rule{
			Name:         "Secure transport",
			Severity:     SevCritical,
			Required:     "Y",
			Keywords:     strings.Join(lowered, ", "),
			Condition:    fmt.Sprintf("All communication uses secure protocols (%s)", strings.Join(usedSecure, ", ")),
			ASTCondition: fmt.Sprintf("edge.protocol IN (%s)", strings.Join(usedSecure, ", ")),
		})
	} else if len(usedInsecure) > 0 {
		out = append(out, Rule{
			Name:         "Insecure transport present",
			Severity:     SevHigh,
			Required:     "Y",
			Keywords:     "http, insecure, transport",
			Condition:    "Some edges use insecure HTTP — upgrade to HTTPS/TLS",
			ASTCondition: fmt.Sprintf("edge.protocol IN (%s)", strings.Join(usedInsecure, ", ")),
		})
	}

	for _, proto := range other {
		out = append(out, Rule{
			Name:         fmt.Sprintf("%s protocol used", proto),
			Severity:     SevMedium,
			Required:     "N",
			Keywords:     strings.ToLower(proto),
			Condition:    fmt.Sprintf("Communication protocol %s is used between components", proto),
			ASTCondition: fmt.Sprintf("edge.protocol == %s", proto),
		})
	}
	return out
}

func deriveZoneRules(groups []ast.Group) []Rule {
	zones := map[string]bool{}
	for _, g := range groups {
		if g.ZoneType != "" {
			zones[g.ZoneType] = true
		}
	}
	if len(zones) == 0 {
		return nil
	}

	names := make([]string, 0, len(zones))
	for z := range zones {
		names = append(names, z)
	}
	sort.Strings(names)

	out := []Rule{{
		Name:         "Zone boundaries defined",
		Severity:     SevHigh,
		Required:     "Y",
		Keywords:     strings.Join(names, ", "),
		Condition:    fmt.Sprintf("Architecture defines zone boundaries: %s", strings.Join(names, ", ")),
		ASTCondition: fmt.Sprintf("group.zone_type IN (%s)", strings.Join(names, ", ")),
	}}

	if zones["dmz"] {
		out = append(out, Rule{
			Name:         "DMZ zone present",
			Severity:     SevCritical,
			Required:     "Y",
			Keywords:     "dmz, perimeter, network",
			Condition:    "A DMZ zone separates external traffic from internal services",
			ASTCondition: "group.zone_type == dmz",
		})
	}

	if zones["external"] && zones["internal"] {
		out = append(out, Rule{
			Name:         "External/internal separation",
			Severity:     SevCritical,
			Required:     "Y",
			Keywords:     "external, internal, isolation",
			Condition:    "External and internal zones are explicitly separated",
			ASTCondition: "group.zone_type IN (external, internal)",
		})
	}
	return out
}

func labelsFor(nodes []ast.Node, role string) []string {
	var out []string
	for _, n := range nodes {
		if n.Role == role {
			label := n.Label
			if label == "" {
				label = n.ID
			}
			out = append(out, label)
		}
	}
	return out
}

func firstN(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}

func deriveRoleRules(nodes []ast.Node) []Rule {
	var out []Rule

	if gateways := labelsFor(nodes, "gateway"); len(gateways) > 0 {
		out = append(out, Rule{
			Name:         "API gateway present",
			Severity:     SevHigh,
			Required:     "Y",
			Keywords:     "gateway, api, routing",
			Condition:    fmt.Sprintf("Traffic routes through gateway (%s)", strings.Join(firstN(gateways, 3), ", ")),
			ASTCondition: "node.role == gateway",
		})
	}

	if len(labelsFor(nodes, "load_balancer")) > 0 {
		out = append(out, Rule{
			Name:         "Load balancer present",
			Severity:     SevMedium,
			Required:     "N",
			Keywords:     "load balancer, availability, scaling",
			Condition:    "Load balancer distributes traffic for availability",
			ASTCondition: "node.role == load_balancer",
		})
	}

	if stores := labelsFor(nodes, "datastore"); len(stores) > 0 {
		out = append(out, Rule{
			Name:         "Data stores identified",
			Severity:     SevHigh,
			Required:     "Y",
			Keywords:     "database, datastore, persistence",
			Condition:    fmt.Sprintf("Data stores explicitly shown (%s)", strings.Join(firstN(stores, 3), ", ")),
			ASTCondition: "node.role == datastore",
		})
	}

	if len(labelsFor(nodes, "cache")) > 0 {
		out = append(out, Rule{
			Name:         "Caching layer present",
			Severity:     SevLow,
			Required:     "N",
			Keywords:     "cache, performance, latency",
			Condition:    "Caching layer exists for performance",
			ASTCondition: "node.role == cache",
		})
	}

	if len(labelsFor(nodes, "queue")) > 0 {
		out = append(out, Rule{
			Name:         "Async messaging present",
			Severity:     SevMedium,
			Required:     "N",
			Keywords:     "queue, async, messaging, decoupling",
			Condition:    "Asynchronous messaging via queues for decoupling",
			ASTCondition: "node.role == queue",
		})
	}

	if externals := labelsFor(nodes, "external"); len(externals) > 0 {
		out = append(out, Rule{
			Name:         "External dependencies documented",
			Severity:     SevHigh,
			Required:     "Y",
			Keywords:     "external, dependency, third-party",
			Condition:    fmt.Sprintf("External dependencies explicitly shown (%s)", strings.Join(firstN(externals, 3), ", ")),
			ASTCondition: "node.role == external",
		})
	}
	return out
}

func idsFor(nodes []ast.Node, role string) map[string]bool {
	out := map[string]bool{}
	for _, n := range nodes {
		if n.Role == role {
			out[n.ID] = true
		}
	}
	return out
}

func deriveConnectivityRules(edges []ast.Edge, nodes []ast.Node) []Rule {
	if len(edges) == 0 {
		return nil
	}

	datastores := idsFor(nodes, "datastore")
	gateways := idsFor(nodes, "gateway")
	externals := idsFor(nodes, "external")

	var out []Rule

	if len(gateways) > 0 && len(externals) > 0 {
		bypasses := false
		for _, e := range edges {
			if externals[e.Source] && !gateways[e.Target] {
				bypasses = true
				break
			}
			if externals[e.Target] && !gateways[e.Source] {
				bypasses = true
				break
			}
		}
		if !bypasses {
			out = append(out, Rule{
				Name:         "External traffic via gateway",
				Severity:     SevCritical,
				Required:     "Y",
				Keywords:     "gateway, external, routing, perimeter",
				Condition:    "All external traffic routes through API gateway",
				ASTCondition: "edge(external, *) -> node.role == gateway",
			})
		}
	}

	if len(datastores) > 0 && len(externals) > 0 {
		directDB := false
		for _, e := range edges {
			if (externals[e.Source] && datastores[e.Target]) ||
				(externals[e.Target] && datastores[e.Source]) {
				directDB = true
				break
			}
		}
		if directDB {
			out = append(out, Rule{
				Name:         "Direct external DB access",
				Severity:     SevCritical,
				Required:     "Y",
				Keywords:     "database, external, direct, access",
				Condition:    "External components have direct database access — must be mediated",
				ASTCondition: "edge(external, datastore) EXISTS",
			})
		} else {
			out = append(out, Rule{
				Name:         "No direct external DB access",
				Severity:     SevCritical,
				Required:     "Y",
				Keywords:     "database, isolation, access control",
				Condition:    "No direct external access to data stores",
				ASTCondition: "NOT edge(external, datastore)",
			})
		}
	}
	return out
}

// Extract derives all governance rules from one AST.
func Extract(a *ast.AST) []Rule {
	var out []Rule
	out = append(out, deriveProtocolRules(a.Edges)...)
	out = append(out, deriveZoneRules(a.Groups)...)
	out = append(out, deriveRoleRules(a.Nodes)...)
	out = append(out, deriveConnectivityRules(a.Edges, a.Nodes)...)
	return out
}

// Dedup removes duplicates by (name, AST condition), keeping the first
// occurrence.
func Dedup(rules []Rule) []Rule {
	seen := map[[2]string]bool{}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		key := [2]string{r.Name, r.ASTCondition}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

var sevRank = map[string]int{SevCritical: 0, SevHigh: 1, SevMedium: 2, SevLow: 3}

func rank(sev string) int {
	if r, ok := sevRank[sev]; ok {
		return r
	}
	return 9
}

// DedupKeepSevere removes duplicates by (name, AST condition), keeping
// the most severe record. Order of first appearance is preserved.
func DedupKeepSevere(rules []Rule) []Rule {
	index := map[[2]string]int{}
	var out []Rule
	for _, r := range rules {
		key := [2]string{r.Name, r.ASTCondition}
		if i, ok := index[key]; ok {
			if rank(r.Severity) < rank(out[i].Severity) {
				out[i] = r
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}
