package analysis

import (
	"slices"

	"github.com/ritzau/promptgraph/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// docGraph mirrors a document's nodes and resolvable relationships as gonum
// graphs keyed by dense int64 vertex ids.
type docGraph struct {
	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph

	ids   map[string]int64
	names map[int64]string
	order []string

	// touched marks node ids with at least one incident relationship,
	// self-loops included.
	touched   map[string]bool
	selfLoops int
	dangling  int
}

func buildGraph(doc *model.GraphDocument) *docGraph {
	g := &docGraph{
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
		ids:        make(map[string]int64),
		names:      make(map[int64]string),
		touched:    make(map[string]bool),
	}

	for _, node := range doc.Nodes {
		g.addNode(node.ID)
	}
	for _, rel := range doc.Relationships {
		g.addRelationship(rel.SourceID, rel.TargetID)
	}
	return g
}

func (g *docGraph) addNode(id string) {
	if _, exists := g.ids[id]; exists {
		return
	}
	vid := int64(len(g.order))
	g.ids[id] = vid
	g.names[vid] = id
	g.order = append(g.order, id)

	g.directed.AddNode(simple.Node(vid))
	g.undirected.AddNode(simple.Node(vid))
}

func (g *docGraph) addRelationship(source, target string) {
	from, okFrom := g.ids[source]
	to, okTo := g.ids[target]
	if !okFrom || !okTo {
		g.dangling++
		return
	}

	g.touched[source] = true
	g.touched[target] = true

	// simple graphs reject self edges
	if from == to {
		g.selfLoops++
		return
	}

	if !g.directed.HasEdgeFromTo(from, to) {
		g.directed.SetEdge(g.directed.NewEdge(simple.Node(from), simple.Node(to)))
	}
	if !g.undirected.HasEdgeBetween(from, to) {
		g.undirected.SetEdge(g.undirected.NewEdge(simple.Node(from), simple.Node(to)))
	}
}

func (g *docGraph) componentCount() int {
	return len(topo.ConnectedComponents(g.undirected))
}

// cycles returns the node ids of every strongly connected component with
// more than one vertex, each sorted.
func (g *docGraph) cycles() [][]string {
	var out [][]string
	for _, scc := range topo.TarjanSCC(g.directed) {
		if len(scc) < 2 {
			continue
		}
		cycle := make([]string, len(scc))
		for i, n := range scc {
			cycle[i] = g.names[n.ID()]
		}
		slices.Sort(cycle)
		out = append(out, cycle)
	}
	return out
}
