package graph

import (
	"fmt"

	"github.com/sbomtools/vulnrank/pkg/model"
)

// Options configures a topology scoring pass. The depth/centrality mix is
// an explicit per-run value so runs with different policies can coexist.
type Options struct {
	// DepthWeight is the convex-combination weight of the inverted depth
	// term in the TCS; centrality receives 1-DepthWeight. Must lie in [0,1].
	DepthWeight float64
}

// DefaultOptions weights depth and centrality equally.
func DefaultOptions() Options {
	return Options{DepthWeight: 0.5}
}

// Scores computes the TopologyScore of every component. The root set
// drives the depth metric; pass nil to derive roots from in-degree.
// It also returns the maximum observed depth, in edges.
func (cg *ComponentGraph) Scores(designatedRoots []string, opts Options) (map[string]model.TopologyScore, int, error) {
	if opts.DepthWeight < 0 || opts.DepthWeight > 1 {
		return nil, 0, fmt.Errorf("depth weight %v outside [0,1]", opts.DepthWeight)
	}

	depths, maxDepth := cg.depths(designatedRoots)
	ancestors := cg.ancestorCounts()

	scores := make(map[string]model.TopologyScore, len(cg.ids))
	for purl, id := range cg.ids {
		var depthNorm float64
		if maxDepth > 0 {
			depthNorm = float64(depths[id]) / float64(maxDepth)
		}

		var centrality float64
		if n := len(cg.ids); n > 1 {
			centrality = float64(ancestors[id]) / float64(n-1)
		}

		scores[purl] = model.TopologyScore{
			Depth:      depthNorm,
			Centrality: centrality,
			TCS:        opts.DepthWeight*(1-depthNorm) + (1-opts.DepthWeight)*centrality,
		}
	}

	return scores, maxDepth, nil
}

// depths runs a multi-source BFS from the root set and returns the
// shortest edge-count distance to each node. Unreachable nodes get the
// maximum observed depth + 1: they are treated as maximally deep rather
// than excluded. maxDepth is the maximum depth over reachable nodes.
func (cg *ComponentGraph) depths(designatedRoots []string) (map[int64]int, int) {
	depths := make(map[int64]int, len(cg.ids))

	queue := cg.roots(designatedRoots)
	for _, id := range queue {
		depths[id] = 0
	}

	maxDepth := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		next := cg.graph.From(cur)
		for next.Next() {
			id := next.Node().ID()
			if _, visited := depths[id]; visited {
				continue
			}
			depths[id] = depths[cur] + 1
			if depths[id] > maxDepth {
				maxDepth = depths[id]
			}
			queue = append(queue, id)
		}
	}

	// Nodes the root set cannot reach (or cycles with no entry point when
	// roots are derived from in-degree) sit below everything observed.
	unreachableDepth := maxDepth + 1
	unreachable := false
	for _, id := range cg.ids {
		if _, visited := depths[id]; !visited {
			depths[id] = unreachableDepth
			unreachable = true
		}
	}
	if unreachable {
		maxDepth = unreachableDepth
	}

	return depths, maxDepth
}

// ancestorCounts returns, per node, the number of other nodes from which
// the node is reachable, i.e. the size of its transitive-dependent set.
// The visited set guards against cycles; all members of a cycle converge
// on the same ancestor set.
func (cg *ComponentGraph) ancestorCounts() map[int64]int {
	counts := make(map[int64]int, len(cg.ids))

	for _, start := range cg.ids {
		visited := map[int64]bool{start: true}
		stack := []int64{start}

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			parents := cg.graph.To(cur)
			for parents.Next() {
				id := parents.Node().ID()
				if visited[id] {
					continue
				}
				visited[id] = true
				stack = append(stack, id)
			}
		}

		counts[start] = len(visited) - 1 // exclude the node itself
	}

	return counts
}
