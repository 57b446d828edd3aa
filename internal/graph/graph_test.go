package graph

import (
	"testing"

	"github.com/ivoronin/verifyio/internal/types"
)

// =============================================================================
// Section 1: program order construction
// =============================================================================

func makeRankNodes(rank int, count int) types.NodeSlice {
	nodes := make([]*types.Node, count)
	for i := 0; i < count; i++ {
		nodes[i] = &types.Node{Rank: rank, SeqID: i, Func: "op", Index: i}
	}
	return types.NewNodeSlice(nodes)
}

// TestBuildProgramOrderLinksConsecutiveNodes tests that program order edges
// connect each node to the next within a rank.
func TestBuildProgramOrderLinksConsecutiveNodes(t *testing.T) {
	nodesPerRank := []types.NodeSlice{makeRankNodes(0, 3)}
	g := Build(nodesPerRank, nil)

	items := nodesPerRank[0].Items()
	if !g.HasPath(items[0], items[2]) {
		t.Error("expected path from first to last node via program order")
	}
	if g.HasPath(items[2], items[0]) {
		t.Error("did not expect a path backwards in program order")
	}
}

// =============================================================================
// Section 2: synchronization edges
// =============================================================================

// TestBuildPointToPointEdgeCrossesRanks tests that a point-to-point edge
// links across ranks directly.
func TestBuildPointToPointEdgeCrossesRanks(t *testing.T) {
	r0 := makeRankNodes(0, 2)
	r1 := makeRankNodes(1, 2)
	nodesPerRank := []types.NodeSlice{r0, r1}

	edges := []types.MPIEdge{
		{CallType: types.PointToPoint, Head: r0.Items()[0], Tail: r1.Items()[1]},
	}
	g := Build(nodesPerRank, edges)

	if !g.HasPath(r0.Items()[0], r1.Items()[1]) {
		t.Error("expected path from send to matched recv")
	}
}

// TestBuildCollectiveInsertsGhostFence tests that a multi-participant
// collective edge inserts exactly one ghost vertex reachable from every
// participant.
func TestBuildCollectiveInsertsGhostFence(t *testing.T) {
	r0 := makeRankNodes(0, 1)
	r1 := makeRankNodes(1, 1)
	r2 := makeRankNodes(2, 1)
	nodesPerRank := []types.NodeSlice{r0, r1, r2}

	edges := []types.MPIEdge{
		{CallType: types.AllToAll, Group: []*types.Node{r0.Items()[0], r1.Items()[0], r2.Items()[0]}},
	}
	g := Build(nodesPerRank, edges)

	if g.Nodes[3].Len() != 1 {
		t.Fatalf("ghost rank has %d nodes, want 1", g.Nodes[3].Len())
	}
	ghost := g.Nodes[3].Items()[0]
	for _, n := range []*types.Node{r0.Items()[0], r1.Items()[0], r2.Items()[0]} {
		if !g.HasPath(n, ghost) {
			t.Errorf("expected path from %v to ghost fence", n)
		}
	}
}

// TestBuildGhostFenceReparentsSuccessors tests that a node's pre-existing
// program-order successor becomes reachable only via the ghost fence, not
// directly, once the node also participates in a collective.
func TestBuildGhostFenceReparentsSuccessors(t *testing.T) {
	r0 := makeRankNodes(0, 2) // node0 -> node1 by program order
	r1 := makeRankNodes(1, 1)
	nodesPerRank := []types.NodeSlice{r0, r1}

	edges := []types.MPIEdge{
		{CallType: types.AllToAll, Group: []*types.Node{r0.Items()[0], r1.Items()[0]}},
	}
	g := Build(nodesPerRank, edges)

	node0, node1 := r0.Items()[0], r0.Items()[1]
	if g.successors[node0.Key()][node1.Key()] {
		t.Error("direct program-order edge should have been re-parented through the ghost fence")
	}
	if !g.HasPath(node0, node1) {
		t.Error("node1 should still be reachable from node0, via the ghost fence")
	}
}

// =============================================================================
// Section 3: cycle detection
// =============================================================================

// TestCheckCyclesNoneByDefault tests that a simple program-order-only graph
// has no cycles.
func TestCheckCyclesNoneByDefault(t *testing.T) {
	nodesPerRank := []types.NodeSlice{makeRankNodes(0, 3)}
	g := Build(nodesPerRank, nil)
	if has, _ := g.CheckCycles(); has {
		t.Error("did not expect a cycle")
	}
}

// TestCheckCyclesDetectsCrossRankCycle tests that two point-to-point edges
// forming a cross-rank cycle are detected.
func TestCheckCyclesDetectsCrossRankCycle(t *testing.T) {
	r0 := makeRankNodes(0, 1)
	r1 := makeRankNodes(1, 1)
	nodesPerRank := []types.NodeSlice{r0, r1}

	g := Build(nodesPerRank, nil)
	g.AddEdge(r0.Items()[0], r1.Items()[0])
	g.AddEdge(r1.Items()[0], r0.Items()[0])

	has, cycle := g.CheckCycles()
	if !has {
		t.Fatal("expected a cycle")
	}
	if len(cycle) == 0 {
		t.Error("expected at least one cross-rank edge in the reported cycle")
	}
}

// =============================================================================
// Section 4: vector clocks
// =============================================================================

// TestRunVectorClockMonotonicAlongProgramOrder tests that a node's clock
// dominates its program-order predecessor's clock.
func TestRunVectorClockMonotonicAlongProgramOrder(t *testing.T) {
	nodesPerRank := []types.NodeSlice{makeRankNodes(0, 3)}
	g := Build(nodesPerRank, nil)
	g.RunVectorClock()

	items := nodesPerRank[0].Items()
	vc0 := g.GetVectorClock(items[0])
	vc2 := g.GetVectorClock(items[2])
	if vc2[0] <= vc0[0] {
		t.Errorf("expected rank-0 component to advance: vc0=%v vc2=%v", vc0, vc2)
	}
}

// =============================================================================
// Section 5: program-order queries
// =============================================================================

// TestNextPONodeFiltersByFunc tests that NextPONode skips nodes whose
// function is not in the requested set.
func TestNextPONodeFiltersByFunc(t *testing.T) {
	nodes := []*types.Node{
		{Rank: 0, SeqID: 0, Func: "open", Index: 0},
		{Rank: 0, SeqID: 1, Func: "write", Index: 1},
		{Rank: 0, SeqID: 2, Func: "close", Index: 2},
	}
	ns := types.NewNodeSlice(nodes)
	g := Build([]types.NodeSlice{ns}, nil)

	next := g.NextPONode(nodes[0], map[string]bool{"close": true})
	if next == nil || next.Func != "close" {
		t.Errorf("NextPONode = %v, want close", next)
	}
}
