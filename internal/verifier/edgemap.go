package verifier

import "github.com/ivoronin/verifyio/internal/types"

// edgeMap indexes every matched synchronization edge by the rank and
// sequence id of each of its participants, so the on-the-fly algorithm can
// look up "what does rank R's node at seq S synchronize with" in O(1)
// instead of scanning the edge list.
//
// edgeMap[rank][seqID] is a slice of length nprocs; entry [targetRank] is
// the participant (if any) this edge contributes on targetRank.
type edgeMap []map[int][]*types.Node

// buildEdgeMap constructs the lookup table described above from the full
// matched-edge list.
func buildEdgeMap(edges []types.MPIEdge, nprocs int) edgeMap {
	m := make(edgeMap, nprocs)
	for rank := range m {
		m[rank] = make(map[int][]*types.Node)
	}

	for _, e := range edges {
		participants := e.Participants()
		for _, c := range participants {
			if c == nil {
				continue
			}
			row := make([]*types.Node, nprocs)
			for _, t := range participants {
				if t != nil {
					row[t.Rank] = t
				}
			}
			m[c.Rank][c.SeqID] = row
		}
	}
	return m
}

// onTheFlyHappensBefore answers "does v1 happen-before v2" for Algorithm 4
// by scanning forward from v1 through v1's rank's remaining nodes for the
// first MPI edge that also touches v2's rank, then comparing sequence ids
// on that rank.
func onTheFlyHappensBefore(m edgeMap, nodesPerRank []types.NodeSlice, v1, v2 *types.Node) bool {
	rankNodes := nodesPerRank[v1.Rank].Items()
	for _, candidate := range rankNodes[v1.Index+1:] {
		row, ok := m[v1.Rank][candidate.SeqID]
		if !ok {
			continue
		}
		target := row[v2.Rank]
		if target == nil {
			continue
		}
		return target.SeqID < v2.SeqID
	}
	return false
}
