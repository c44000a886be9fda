package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsight/diagast/pkg/ast"
)

func ruleNames(rules []Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

func TestExtractGatewayAndSecureTransport(t *testing.T) {
	a := ast.New(ast.Flowchart)
	a.Nodes = []ast.Node{
		{ID: "gw", Label: "API Gateway", Role: "gateway"},
		{ID: "db", Label: "User DB", Role: "datastore"},
	}
	a.Edges = []ast.Edge{
		{ID: "e1", Source: "gw", Target: "db", Protocol: "HTTPS", Style: ast.Dashed, ArrowEnd: true},
	}

	rules := Extract(a)
	names := ruleNames(rules)
	assert.Contains(t, names, "Secure transport")
	assert.Contains(t, names, "API gateway present")
	assert.Contains(t, names, "Data stores identified")

	for _, r := range rules {
		if r.Name == "Secure transport" {
			assert.Equal(t, SevCritical, r.Severity)
			assert.Equal(t, "Y", r.Required)
			assert.Contains(t, r.Condition, "HTTPS")
			assert.Equal(t, "edge.protocol IN (HTTPS)", r.ASTCondition)
		}
		if r.Name == "API gateway present" {
			assert.Contains(t, r.Condition, "API Gateway")
		}
	}
}

func TestExtractInsecureTransport(t *testing.T) {
	a := ast.New(ast.Flowchart)
	a.Edges = []ast.Edge{
		{ID: "e1", Source: "a", Target: "b", Protocol: "HTTP"},
		{ID: "e2", Source: "b", Target: "c", Protocol: "HTTPS"},
		{ID: "e3", Source: "c", Target: "d", Protocol: "SQL"},
	}

	rules := Extract(a)
	names := ruleNames(rules)
	assert.Contains(t, names, "Insecure transport present")
	assert.NotContains(t, names, "Secure transport")
	assert.Contains(t, names, "SQL protocol used")
}

func TestExtractZoneRules(t *testing.T) {
	a := ast.New(ast.Flowchart)
	a.Groups = []ast.Group{
		{ID: "g1", Label: "DMZ", ZoneType: "dmz"},
		{ID: "g2", Label: "Internal", ZoneType: "internal"},
		{ID: "g3", Label: "Internet", ZoneType: "external"},
	}

	rules := Extract(a)
	names := ruleNames(rules)
	assert.Contains(t, names, "Zone boundaries defined")
	assert.Contains(t, names, "DMZ zone present")
	assert.Contains(t, names, "External/internal separation")

	for _, r := range rules {
		if r.Name == "Zone boundaries defined" {
			assert.Equal(t, "group.zone_type IN (dmz, external, internal)", r.ASTCondition)
		}
	}
}

func TestExtractConnectivityRules(t *testing.T) {
	a := ast.New(ast.Flowchart)
	a.Nodes = []ast.Node{
		{ID: "ext", Label: "Partner API", Role: "external"},
		{ID: "gw", Label: "Gateway", Role: "gateway"},
		{ID: "db", Label: "DB", Role: "datastore"},
	}
	a.Edges = []ast.Edge{
		{ID: "e1", Source: "ext", Target: "gw"},
		{ID: "e2", Source: "gw", Target: "db"},
	}

	names := ruleNames(Extract(a))
	assert.Contains(t, names, "External traffic via gateway")
	assert.Contains(t, names, "No direct external DB access")

	// Now give the external node a direct edge to the datastore.
	a.Edges = append(a.Edges, ast.Edge{ID: "e3", Source: "ext", Target: "db"})
	names = ruleNames(Extract(a))
	assert.Contains(t, names, "Direct external DB access")
	assert.NotContains(t, names, "External traffic via gateway")
	assert.NotContains(t, names, "No direct external DB access")
}

func TestExtractEmptyAST(t *testing.T) {
	assert.Empty(t, Extract(ast.New(ast.Flowchart)))
}

func TestDedupFirstWins(t *testing.T) {
	rules := []Rule{
		{Name: "A", ASTCondition: "x", Severity: SevHigh},
		{Name: "A", ASTCondition: "x", Severity: SevLow},
		{Name: "A", ASTCondition: "y", Severity: SevLow},
	}
	out := Dedup(rules)
	require.Len(t, out, 2)
	assert.Equal(t, SevHigh, out[0].Severity)
}

func TestDedupKeepSevere(t *testing.T) {
	rules := []Rule{
		{Name: "A", ASTCondition: "x", Severity: SevMedium},
		{Name: "A", ASTCondition: "x", Severity: SevCritical},
		{Name: "B", ASTCondition: "y", Severity: SevLow},
		{Name: "B", ASTCondition: "y", Severity: SevHigh},
		{Name: "B", ASTCondition: "y", Severity: SevMedium},
	}
	out := DedupKeepSevere(rules)
	require.Len(t, out, 2)
	assert.Equal(t, SevCritical, out[0].Severity)
	assert.Equal(t, SevHigh, out[1].Severity)
}
