// Package analysis computes summary metrics for a valid graph document.
package analysis

import (
	"slices"

	"github.com/ritzau/promptgraph/pkg/model"
	"github.com/ritzau/promptgraph/pkg/projection"
)

// Metrics summarizes the size and shape of a graph document.
type Metrics struct {
	NodeCount                 int `json:"node_count"`
	RelationshipCount         int `json:"relationship_count"`
	NodePropertyCount         int `json:"node_property_count"`
	RelationshipPropertyCount int `json:"relationship_property_count"`

	// GroupCounts maps each projected group to its node count.
	GroupCounts map[string]int `json:"group_counts"`

	// IsolatedNodes lists node ids with no incident relationship, in
	// document order.
	IsolatedNodes []string `json:"isolated_nodes"`

	// ComponentCount is the number of weakly connected components.
	ComponentCount int `json:"component_count"`

	SelfLoops             int `json:"self_loops"`
	DanglingRelationships int `json:"dangling_relationships"`

	// Cycles lists strongly connected components with more than one node.
	// Ids are sorted within a cycle and cycles are sorted by first id.
	Cycles [][]string `json:"cycles"`
}

// Analyze computes Metrics for doc. Duplicate node ids collapse onto a single
// vertex. Relationships naming an unknown node are counted as dangling and
// left out of the topology.
func Analyze(doc *model.GraphDocument) Metrics {
	m := Metrics{
		NodeCount:         len(doc.Nodes),
		RelationshipCount: len(doc.Relationships),
		GroupCounts:       make(map[string]int),
		IsolatedNodes:     []string{},
		Cycles:            [][]string{},
	}

	for _, node := range doc.Nodes {
		m.NodePropertyCount += len(node.Properties)
		m.GroupCounts[projection.Group(node.Type)]++
	}
	for _, rel := range doc.Relationships {
		m.RelationshipPropertyCount += len(rel.Properties)
	}

	g := buildGraph(doc)
	m.SelfLoops = g.selfLoops
	m.DanglingRelationships = g.dangling
	m.ComponentCount = g.componentCount()

	for _, id := range g.order {
		if !g.touched[id] {
			m.IsolatedNodes = append(m.IsolatedNodes, id)
		}
	}

	m.Cycles = append(m.Cycles, g.cycles()...)
	slices.SortFunc(m.Cycles, func(a, b []string) int {
		return slices.Compare(a, b)
	})

	return m
}
