package projection

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ritzau/promptgraph/pkg/model"
	"github.com/ritzau/promptgraph/pkg/schema"
)

func sampleDocument() *model.GraphDocument {
	return &model.GraphDocument{
		Metadata: model.GraphMetadata{Timestamp: "t", Source: "s", Date: "d"},
		Nodes: []model.GraphNode{
			{ID: "c1", Type: "Company", Name: "Acme", Properties: model.Properties{
				{Key: "b", Value: model.NumberValue(1)},
				{Key: "a", Value: model.NumberValue(2)},
			}},
			{ID: "p1", Type: "PERSON", Name: "Alice", Properties: model.Properties{}},
			{ID: "e1", Type: "Event", Name: "IPO", Properties: model.Properties{
				{Key: "date", Value: model.StringValue("2020-01-01")},
			}},
		},
		Relationships: []model.GraphRelationship{
			{SourceID: "p1", TargetID: "c1", Type: "WORKS_AT", Name: "works at"},
			{SourceID: "c1", TargetID: "e1", Type: "HELD", Name: "held", Properties: model.Properties{
				{Key: "confidence", Value: model.NumberValue(0.9)},
			}},
		},
	}
}

func TestProjectPreservesOrderAndCount(t *testing.T) {
	doc := sampleDocument()
	g := Project(doc)

	if len(g.Nodes) != len(doc.Nodes) {
		t.Fatalf("expected %d nodes, got %d", len(doc.Nodes), len(g.Nodes))
	}
	if len(g.Links) != len(doc.Relationships) {
		t.Fatalf("expected %d links, got %d", len(doc.Relationships), len(g.Links))
	}
	for i, node := range doc.Nodes {
		if g.Nodes[i].ID != node.ID {
			t.Errorf("node %d: expected id %s, got %s", i, node.ID, g.Nodes[i].ID)
		}
		if g.Nodes[i].Label != node.Name {
			t.Errorf("node %d: expected label %s, got %s", i, node.Name, g.Nodes[i].Label)
		}
	}
	for i, rel := range doc.Relationships {
		link := g.Links[i]
		if link.Source != rel.SourceID || link.Target != rel.TargetID || link.Label != rel.Name {
			t.Errorf("link %d: expected %s-%s->%s, got %s-%s->%s",
				i, rel.SourceID, rel.Name, rel.TargetID, link.Source, link.Label, link.Target)
		}
	}
}

func TestProjectGroupIsLowercase(t *testing.T) {
	tests := map[string]string{
		"Company":     "company",
		"COMPANY":     "company",
		"company":     "company",
		"Legal Event": "legal event",
		"":            "",
	}
	for in, want := range tests {
		if got := Group(in); got != want {
			t.Errorf("Group(%q) = %q, want %q", in, got, want)
		}
	}

	g := Project(sampleDocument())
	if g.Nodes[1].Group != "person" {
		t.Errorf("expected PERSON to project to person, got %q", g.Nodes[1].Group)
	}
}

func TestProjectPropertyOrder(t *testing.T) {
	g := Project(sampleDocument())
	props := g.Nodes[0].Properties
	if len(props) != 2 || props[0].Key != "b" || props[1].Key != "a" {
		t.Errorf("expected properties in input order [b a], got %+v", props)
	}
}

func TestProjectLinkProperties(t *testing.T) {
	g := Project(sampleDocument())
	if g.Links[0].Properties != nil {
		t.Errorf("expected absent relationship properties to stay nil, got %+v", g.Links[0].Properties)
	}
	if len(g.Links[1].Properties) != 1 {
		t.Errorf("expected 1 link property, got %d", len(g.Links[1].Properties))
	}

	data, err := json.Marshal(g.Links[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"source":"p1","target":"c1","label":"works at"}` {
		t.Errorf("unexpected link JSON %s", data)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	doc := sampleDocument()
	first := Project(doc)
	second := Project(doc)
	if !reflect.DeepEqual(first, second) {
		t.Error("projecting the same document twice gave different results")
	}
}

func TestProjectDoesNotAliasInput(t *testing.T) {
	doc := sampleDocument()
	g := Project(doc)
	g.Nodes[0].Properties[0].Key = "changed"
	g.Links[1].Properties[0].Key = "changed"

	if doc.Nodes[0].Properties[0].Key != "b" {
		t.Error("mutating projected node properties changed the document")
	}
	if doc.Relationships[1].Properties[0].Key != "confidence" {
		t.Error("mutating projected link properties changed the document")
	}
}

func TestProjectValidatedDocument(t *testing.T) {
	res := schema.ValidateString("```json\n" + `{"metadata":{"timestamp":"t","source":"s","date":"d"},
	 "nodes":[{"id":"n1","type":"Person","name":"Alice","properties":[{"key":"b","value":1},{"key":"a","value":2}]}],
	 "relationships":[{"source_id":"n1","target_id":"n1","type":"SELF","name":"self"}]}` + "\n```")
	if !res.Valid() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	g := Project(res.Document)
	want := model.ProjectedGraph{
		Nodes: []model.ProjectedNode{{
			ID: "n1", Label: "Alice", Group: "person",
			Properties: model.Properties{
				{Key: "b", Value: model.NumberValue(1)},
				{Key: "a", Value: model.NumberValue(2)},
			},
		}},
		Links: []model.ProjectedLink{{Source: "n1", Target: "n1", Label: "self"}},
	}
	if !reflect.DeepEqual(g, want) {
		t.Errorf("unexpected projection:\n got %+v\nwant %+v", g, want)
	}
}

func TestProjectEmptyDocument(t *testing.T) {
	g := Project(&model.GraphDocument{})
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"nodes":[],"links":[]}` {
		t.Errorf("unexpected JSON %s", data)
	}
}
