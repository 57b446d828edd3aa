package graph

// RunVectorClock computes a vector clock for every node in the graph, one
// component per real rank plus one for the ghost rank. The caller must have
// already confirmed the graph is acyclic (CheckCycles), since the
// computation relies on a topological traversal.
//
// For each node, its clock is the componentwise max of every predecessor's
// clock, with the predecessor's own rank component incremented by one
// (mirroring the original per-predecessor vc[rank_of(pred)] += 1 step before
// folding it in).
func (g *Graph) RunVectorClock() {
	order := g.topologicalOrder()
	width := g.NProcs + 1

	for _, key := range order {
		vc := make([]int, width)
		for predKey := range g.predecessors[key] {
			predVC := g.vc[predKey]
			rank := keyRank(predKey)
			for i := 0; i < width; i++ {
				candidate := predVC[i]
				if i == rank {
					candidate++
				}
				if candidate > vc[i] {
					vc[i] = candidate
				}
			}
		}
		g.vc[key] = vc
	}
}

// topologicalOrder returns every node key in topological (Kahn's algorithm)
// order.
func (g *Graph) topologicalOrder() []string {
	inDegree := make(map[string]int, len(g.byKey))
	for key := range g.byKey {
		inDegree[key] = len(g.predecessors[key])
	}

	var queue []string
	for key, d := range inDegree {
		if d == 0 {
			queue = append(queue, key)
		}
	}

	order := make([]string, 0, len(g.byKey))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for next := range g.successors[cur] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return order
}
