package graph

import (
	"github.com/sbomtools/vulnrank/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// ComponentGraph is the dependency graph of one inventory. Components are
// addressed by PURL and stored in an arena keyed by stable integer ids, so
// cyclic inventories never form ownership cycles. The graph is not mutated
// after construction and is discarded when the run completes.
type ComponentGraph struct {
	graph  *simple.DirectedGraph
	ids    map[string]int64 // PURL -> gonum node id
	purls  map[int64]string // gonum node id -> PURL
	nextID int64
}

// Build constructs a ComponentGraph from an inventory's components and
// edges. Duplicate edges collapse to one and self-loops are dropped. An
// edge endpoint that names an unknown component is an integrity violation.
func Build(components []model.Component, edges []model.DependencyEdge) (*ComponentGraph, error) {
	cg := &ComponentGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(components)),
		purls: make(map[int64]string, len(components)),
	}

	for _, c := range components {
		cg.addComponent(c.PURL)
	}

	for _, e := range edges {
		if _, ok := cg.ids[e.Parent]; !ok {
			return nil, &model.IntegrityError{Kind: "edge", Reference: e.Child, Missing: e.Parent}
		}
		if _, ok := cg.ids[e.Child]; !ok {
			return nil, &model.IntegrityError{Kind: "edge", Reference: e.Parent, Missing: e.Child}
		}
		if e.Parent == e.Child {
			continue
		}
		from := cg.ids[e.Parent]
		to := cg.ids[e.Child]
		if !cg.graph.HasEdgeFromTo(from, to) {
			cg.graph.SetEdge(cg.graph.NewEdge(cg.graph.Node(from), cg.graph.Node(to)))
		}
	}

	return cg, nil
}

func (cg *ComponentGraph) addComponent(purl string) {
	if _, exists := cg.ids[purl]; exists {
		return
	}
	cg.ids[purl] = cg.nextID
	cg.purls[cg.nextID] = purl
	cg.graph.AddNode(simple.Node(cg.nextID))
	cg.nextID++
}

// Contains reports whether a component is part of the graph.
func (cg *ComponentGraph) Contains(purl string) bool {
	_, ok := cg.ids[purl]
	return ok
}

// Len returns the number of components in the graph.
func (cg *ComponentGraph) Len() int {
	return len(cg.ids)
}

// Components returns all PURLs in the graph, in arena order.
func (cg *ComponentGraph) Components() []string {
	out := make([]string, cg.nextID)
	for id, purl := range cg.purls {
		out[id] = purl
	}
	return out
}

// roots resolves the root set for traversal. When the caller supplies no
// designated roots, every component with no incoming edge is a root.
func (cg *ComponentGraph) roots(designated []string) []int64 {
	if len(designated) > 0 {
		ids := make([]int64, 0, len(designated))
		for _, purl := range designated {
			if id, ok := cg.ids[purl]; ok {
				ids = append(ids, id)
			}
		}
		return ids
	}

	var ids []int64
	for _, id := range cg.ids {
		if it := cg.graph.To(id); it.Len() == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
