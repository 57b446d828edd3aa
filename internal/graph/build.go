package graph

import "github.com/ivoronin/verifyio/internal/types"

// Build assembles the happens-before graph from every rank's node list and
// the matched synchronization edges between them.
//
// Construction proceeds in two passes:
//  1. Program order: within each rank, node i links to node i+1.
//  2. Synchronization order: a point-to-point edge links its head directly
//     to its tail; a multi-participant collective edge instead gets a
//     single ghost fence vertex, with every participant's existing
//     successor re-parented onto the ghost node and an edge added from
//     every participant into it. Using one ghost vertex per collective
//     (rather than one per participant) keeps the collective's contribution
//     to the graph a single fan-in/fan-out point, which is sufficient to
//     prevent the cross-rank cycles unfenced collective edges would
//     otherwise create.
func Build(nodesPerRank []types.NodeSlice, edges []types.MPIEdge) *Graph {
	nprocs := len(nodesPerRank)
	g := newGraph(nprocs)
	g.Nodes = make([]types.NodeSlice, nprocs+1) // +1 for the ghost rank
	copy(g.Nodes, nodesPerRank)

	for rank := 0; rank < nprocs; rank++ {
		items := nodesPerRank[rank].Items()
		if len(items) == 0 {
			continue
		}
		g.addNode(items[0])
		for i := 0; i < len(items)-1; i++ {
			g.AddEdge(items[i], items[i+1])
		}
	}

	ghostSeqID := 0
	var ghosts []*types.Node

	for _, edge := range edges {
		switch edge.CallType {
		case types.PointToPoint:
			if edge.Head != nil && edge.Tail != nil {
				g.AddEdge(edge.Head, edge.Tail)
			}
			continue
		}

		participants := edge.Participants()
		if len(participants) <= 1 {
			continue
		}

		ghost := &types.Node{Rank: nprocs, SeqID: ghostSeqID, Func: "ghost"}
		ghostSeqID++
		g.addNode(ghost)

		for _, p := range participants {
			for succKey := range g.successors[p.Key()] {
				g.successors[ghost.Key()][succKey] = true
				g.predecessors[succKey][ghost.Key()] = true
				delete(g.predecessors[succKey], p.Key())
			}
			g.successors[p.Key()] = make(map[string]bool)
		}
		for _, p := range participants {
			g.AddEdge(p, ghost)
		}
		ghosts = append(ghosts, ghost)
	}

	ghostSlice := types.NewNodeSlice(ghosts)
	for i, n := range ghostSlice.Items() {
		n.Index = i
	}
	g.Nodes[nprocs] = ghostSlice
	return g
}
