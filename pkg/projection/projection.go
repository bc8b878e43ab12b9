// Package projection maps validated graph documents onto the node/link shape
// consumed by the force-graph viewer.
package projection

import (
	"strings"

	"github.com/ritzau/promptgraph/pkg/model"
)

// Project maps doc onto a ProjectedGraph. Node and link order follow the
// input sequences, so index i of the output corresponds to index i of the
// input. doc must have come out of a valid schema.Result.
func Project(doc *model.GraphDocument) model.ProjectedGraph {
	graph := model.ProjectedGraph{
		Nodes: make([]model.ProjectedNode, 0, len(doc.Nodes)),
		Links: make([]model.ProjectedLink, 0, len(doc.Relationships)),
	}

	for _, node := range doc.Nodes {
		graph.Nodes = append(graph.Nodes, ProjectNode(node))
	}
	for _, rel := range doc.Relationships {
		graph.Links = append(graph.Links, ProjectLink(rel))
	}

	return graph
}

// ProjectNode maps a single node.
func ProjectNode(node model.GraphNode) model.ProjectedNode {
	props := node.Properties.Clone()
	if props == nil {
		props = model.Properties{}
	}
	return model.ProjectedNode{
		ID:         node.ID,
		Label:      node.Name,
		Group:      Group(node.Type),
		Properties: props,
	}
}

// ProjectLink maps a single relationship. Properties stay nil when the
// relationship had none.
func ProjectLink(rel model.GraphRelationship) model.ProjectedLink {
	return model.ProjectedLink{
		Source:     rel.SourceID,
		Target:     rel.TargetID,
		Label:      rel.Name,
		Properties: rel.Properties.Clone(),
	}
}

// Group derives the styling group from a node type.
func Group(nodeType string) string {
	return strings.ToLower(nodeType)
}
