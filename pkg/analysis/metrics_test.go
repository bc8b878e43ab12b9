package analysis

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ritzau/promptgraph/pkg/model"
)

func node(id, typ string, props ...string) model.GraphNode {
	n := model.GraphNode{ID: id, Type: typ, Name: id, Properties: model.Properties{}}
	for _, k := range props {
		n.Properties = append(n.Properties, model.Property{Key: k, Value: model.StringValue("v")})
	}
	return n
}

func rel(source, target string, props ...string) model.GraphRelationship {
	r := model.GraphRelationship{SourceID: source, TargetID: target, Type: "REL", Name: "rel"}
	for _, k := range props {
		r.Properties = append(r.Properties, model.Property{Key: k, Value: model.NumberValue(1)})
	}
	return r
}

func TestAnalyzeCounts(t *testing.T) {
	doc := &model.GraphDocument{
		Nodes: []model.GraphNode{
			node("a", "Company", "name", "founded"),
			node("b", "COMPANY"),
			node("c", "Person", "age"),
		},
		Relationships: []model.GraphRelationship{
			rel("c", "a", "since"),
			rel("c", "b"),
		},
	}

	m := Analyze(doc)
	if m.NodeCount != 3 {
		t.Errorf("expected 3 nodes, got %d", m.NodeCount)
	}
	if m.RelationshipCount != 2 {
		t.Errorf("expected 2 relationships, got %d", m.RelationshipCount)
	}
	if m.NodePropertyCount != 3 {
		t.Errorf("expected 3 node properties, got %d", m.NodePropertyCount)
	}
	if m.RelationshipPropertyCount != 1 {
		t.Errorf("expected 1 relationship property, got %d", m.RelationshipPropertyCount)
	}
	want := map[string]int{"company": 2, "person": 1}
	if !reflect.DeepEqual(m.GroupCounts, want) {
		t.Errorf("expected group counts %v, got %v", want, m.GroupCounts)
	}
	if m.ComponentCount != 1 {
		t.Errorf("expected 1 component, got %d", m.ComponentCount)
	}
	if len(m.Cycles) != 0 {
		t.Errorf("expected no cycles, got %v", m.Cycles)
	}
}

func TestAnalyzeTopology(t *testing.T) {
	doc := &model.GraphDocument{
		Nodes: []model.GraphNode{
			node("x", "Event"),
			node("b", "Event"),
			node("a", "Event"),
			node("lonely", "Person"),
			node("loop", "Person"),
			node("p", "Person"),
			node("q", "Person"),
		},
		Relationships: []model.GraphRelationship{
			rel("x", "b"),
			rel("b", "a"),
			rel("a", "x"),
			rel("a", "x"), // parallel edge
			rel("loop", "loop"),
			rel("p", "q"),
			rel("q", "p"),
			rel("p", "ghost"),
		},
	}

	m := Analyze(doc)
	if m.SelfLoops != 1 {
		t.Errorf("expected 1 self loop, got %d", m.SelfLoops)
	}
	if m.DanglingRelationships != 1 {
		t.Errorf("expected 1 dangling relationship, got %d", m.DanglingRelationships)
	}
	if !reflect.DeepEqual(m.IsolatedNodes, []string{"lonely"}) {
		t.Errorf("expected [lonely] isolated, got %v", m.IsolatedNodes)
	}
	// {x,b,a}, {lonely}, {loop}, {p,q}
	if m.ComponentCount != 4 {
		t.Errorf("expected 4 components, got %d", m.ComponentCount)
	}
	wantCycles := [][]string{{"a", "b", "x"}, {"p", "q"}}
	if !reflect.DeepEqual(m.Cycles, wantCycles) {
		t.Errorf("expected cycles %v, got %v", wantCycles, m.Cycles)
	}
}

func TestAnalyzeDuplicateIDs(t *testing.T) {
	doc := &model.GraphDocument{
		Nodes: []model.GraphNode{node("a", "X"), node("a", "X"), node("b", "Y")},
	}
	m := Analyze(doc)
	if m.NodeCount != 3 {
		t.Errorf("expected node count to include duplicates, got %d", m.NodeCount)
	}
	if m.ComponentCount != 2 {
		t.Errorf("expected 2 components, got %d", m.ComponentCount)
	}
	if !reflect.DeepEqual(m.IsolatedNodes, []string{"a", "b"}) {
		t.Errorf("expected [a b] isolated, got %v", m.IsolatedNodes)
	}
}

func TestAnalyzeEmptyDocumentJSON(t *testing.T) {
	m := Analyze(&model.GraphDocument{})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"node_count":0,"relationship_count":0,"node_property_count":0,"relationship_property_count":0,` +
		`"group_counts":{},"isolated_nodes":[],"component_count":0,"self_loops":0,"dangling_relationships":0,"cycles":[]}`
	if string(data) != want {
		t.Errorf("unexpected JSON:\n got %s\nwant %s", data, want)
	}
}
