package graph

import (
	"testing"

	"github.com/sbomtools/vulnrank/pkg/model"
)

func components(purls ...string) []model.Component {
	out := make([]model.Component, len(purls))
	for i, p := range purls {
		out[i] = model.Component{PURL: p, Name: p}
	}
	return out
}

func edge(parent, child string) model.DependencyEdge {
	return model.DependencyEdge{Parent: parent, Child: child}
}

func TestBuildRejectsUnknownEndpoint(t *testing.T) {
	_, err := Build(components("a"), []model.DependencyEdge{edge("a", "ghost")})
	if err == nil {
		t.Fatal("expected integrity error for unknown edge endpoint")
	}
	if !model.IsIntegrityError(err) {
		t.Errorf("expected IntegrityError, got %T: %v", err, err)
	}
}

func TestBuildCollapsesDuplicatesAndSelfLoops(t *testing.T) {
	cg, err := Build(components("a", "b"), []model.DependencyEdge{
		edge("a", "b"),
		edge("a", "b"),
		edge("a", "a"),
	})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if cg.Len() != 2 {
		t.Errorf("expected 2 components, got %d", cg.Len())
	}
	if cg.graph.Edges().Len() != 1 {
		t.Errorf("expected 1 edge after collapsing, got %d", cg.graph.Edges().Len())
	}
}

func TestLinearChainDepths(t *testing.T) {
	cg, err := Build(components("a", "b", "c"), []model.DependencyEdge{
		edge("a", "b"),
		edge("b", "c"),
	})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	scores, maxDepth, err := cg.Scores([]string{"a"}, DefaultOptions())
	if err != nil {
		t.Fatalf("Scores() failed: %v", err)
	}

	if maxDepth != 2 {
		t.Errorf("expected max depth 2, got %d", maxDepth)
	}

	wantDepth := map[string]float64{"a": 0, "b": 0.5, "c": 1}
	for purl, want := range wantDepth {
		if got := scores[purl].Depth; got != want {
			t.Errorf("depth(%s) = %v, want %v", purl, got, want)
		}
	}

	wantCentrality := map[string]float64{"a": 0, "b": 0.5, "c": 1}
	for purl, want := range wantCentrality {
		if got := scores[purl].Centrality; got != want {
			t.Errorf("centrality(%s) = %v, want %v", purl, got, want)
		}
	}

	// Equal weighting makes every node 0.5 on this chain: the shallow
	// root trades exposure for blast radius one-for-one with the leaf.
	for purl, s := range scores {
		if s.TCS != 0.5 {
			t.Errorf("tcs(%s) = %v, want 0.5", purl, s.TCS)
		}
	}
}

func TestDerivedRoots(t *testing.T) {
	cg, err := Build(components("a", "b", "c"), []model.DependencyEdge{
		edge("a", "b"),
		edge("b", "c"),
	})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// No designated roots: "a" is the only zero-in-degree node, so the
	// result must match the designated-root run.
	scores, maxDepth, err := cg.Scores(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Scores() failed: %v", err)
	}
	if maxDepth != 2 {
		t.Errorf("expected max depth 2, got %d", maxDepth)
	}
	if scores["c"].Depth != 1 {
		t.Errorf("depth(c) = %v, want 1", scores["c"].Depth)
	}
}

func TestCycleTerminatesWithSharedAncestry(t *testing.T) {
	cg, err := Build(components("a", "b", "c"), []model.DependencyEdge{
		edge("a", "b"),
		edge("b", "c"),
		edge("c", "a"),
	})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	scores, _, err := cg.Scores([]string{"a"}, DefaultOptions())
	if err != nil {
		t.Fatalf("Scores() failed: %v", err)
	}

	// Every cycle member is an ancestor of every other, so all three
	// share the same centrality.
	want := scores["a"].Centrality
	if want != 1 {
		t.Errorf("centrality(a) = %v, want 1", want)
	}
	for _, purl := range []string{"b", "c"} {
		if scores[purl].Centrality != want {
			t.Errorf("centrality(%s) = %v, want %v", purl, scores[purl].Centrality, want)
		}
	}
}

func TestUnreachableAndIsolated(t *testing.T) {
	// "d" is isolated; "c" hangs off a subtree the root set never reaches.
	cg, err := Build(components("a", "b", "c", "d"), []model.DependencyEdge{
		edge("a", "b"),
		edge("c", "b"),
	})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	scores, maxDepth, err := cg.Scores([]string{"a"}, DefaultOptions())
	if err != nil {
		t.Fatalf("Scores() failed: %v", err)
	}

	// Reachable depths: a=0, b=1. Unreachable nodes land at 2.
	if maxDepth != 2 {
		t.Errorf("expected max depth 2, got %d", maxDepth)
	}
	if scores["c"].Depth != 1 {
		t.Errorf("unreachable depth should normalize to 1, got %v", scores["c"].Depth)
	}
	if scores["d"].Depth != 1 {
		t.Errorf("isolated depth should normalize to 1, got %v", scores["d"].Depth)
	}
	if scores["d"].Centrality != 0 {
		t.Errorf("isolated centrality = %v, want 0", scores["d"].Centrality)
	}
}

func TestSingleComponentGraph(t *testing.T) {
	cg, err := Build(components("only"), nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	scores, maxDepth, err := cg.Scores(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Scores() failed: %v", err)
	}
	if maxDepth != 0 {
		t.Errorf("expected max depth 0, got %d", maxDepth)
	}
	s := scores["only"]
	if s.Depth != 0 || s.Centrality != 0 {
		t.Errorf("single component should score depth=0 centrality=0, got %+v", s)
	}
}

func TestScoresBounded(t *testing.T) {
	cg, err := Build(components("a", "b", "c", "d", "e"), []model.DependencyEdge{
		edge("a", "b"),
		edge("a", "c"),
		edge("b", "d"),
		edge("c", "d"),
		edge("d", "e"),
	})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	for _, w := range []float64{0, 0.25, 0.5, 1} {
		scores, _, err := cg.Scores(nil, Options{DepthWeight: w})
		if err != nil {
			t.Fatalf("Scores(w=%v) failed: %v", w, err)
		}
		for purl, s := range scores {
			if s.Depth < 0 || s.Depth > 1 {
				t.Errorf("w=%v: depth(%s)=%v outside [0,1]", w, purl, s.Depth)
			}
			if s.Centrality < 0 || s.Centrality > 1 {
				t.Errorf("w=%v: centrality(%s)=%v outside [0,1]", w, purl, s.Centrality)
			}
			if s.TCS < 0 || s.TCS > 1 {
				t.Errorf("w=%v: tcs(%s)=%v outside [0,1]", w, purl, s.TCS)
			}
		}
	}
}

func TestInvalidDepthWeight(t *testing.T) {
	cg, err := Build(components("a"), nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if _, _, err := cg.Scores(nil, Options{DepthWeight: 1.5}); err == nil {
		t.Error("expected error for depth weight outside [0,1]")
	}
}
