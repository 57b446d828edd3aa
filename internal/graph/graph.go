// Package graph builds and queries the happens-before DAG of a trace: a
// directed graph whose vertices are VerifyIO nodes (real logged calls and
// synthetic "ghost" fence vertices for multi-participant collectives) and
// whose edges are program order within a rank plus synchronization order
// across ranks.
package graph

import (
	"fmt"

	"github.com/ivoronin/verifyio/internal/types"
)

// Graph is a map-based directed graph of VerifyIO nodes, keyed by
// (*types.Node).Key(). There is no graph library anywhere in this corpus to
// build on, so adjacency is hand-rolled on plain maps, mirroring how the
// rest of this codebase favors small maps/slices over an abstraction layer
// when nothing in the dependency stack already provides one.
type Graph struct {
	NProcs int
	Nodes  []types.NodeSlice // Nodes[rank], including ghost nodes under Nodes[NProcs]

	byKey       map[string]*types.Node
	successors  map[string]map[string]bool
	predecessors map[string]map[string]bool
	vc          map[string][]int
}

// newGraph creates an empty graph sized for nprocs real ranks.
func newGraph(nprocs int) *Graph {
	return &Graph{
		NProcs:       nprocs,
		byKey:        make(map[string]*types.Node),
		successors:   make(map[string]map[string]bool),
		predecessors: make(map[string]map[string]bool),
		vc:           make(map[string][]int),
	}
}

// addNode registers n in the graph if not already present.
func (g *Graph) addNode(n *types.Node) {
	key := n.Key()
	if _, ok := g.byKey[key]; ok {
		return
	}
	g.byKey[key] = n
	g.successors[key] = make(map[string]bool)
	g.predecessors[key] = make(map[string]bool)
}

// AddEdge adds a directed edge h -> t, registering both endpoints.
func (g *Graph) AddEdge(h, t *types.Node) {
	g.addNode(h)
	g.addNode(t)
	g.successors[h.Key()][t.Key()] = true
	g.predecessors[t.Key()][h.Key()] = true
}

// RemoveEdge removes the directed edge h -> t, if present.
func (g *Graph) RemoveEdge(h, t *types.Node) {
	delete(g.successors[h.Key()], t.Key())
	delete(g.predecessors[t.Key()], h.Key())
}

// NumNodes returns the number of vertices in the graph.
func (g *Graph) NumNodes() int { return len(g.byKey) }

// HasPath reports whether dst is reachable from src by a breadth-first
// search over successor edges.
func (g *Graph) HasPath(src, dst *types.Node) bool {
	if src == nil || dst == nil {
		return false
	}
	srcKey, dstKey := src.Key(), dst.Key()
	if srcKey == dstKey {
		return true
	}
	visited := map[string]bool{srcKey: true}
	queue := []string{srcKey}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.successors[cur] {
			if next == dstKey {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// ShortestPath returns the node keys of a shortest path from src to dst, or
// nil if none exists.
func (g *Graph) ShortestPath(src, dst *types.Node) []string {
	if src == nil || dst == nil {
		return nil
	}
	srcKey, dstKey := src.Key(), dst.Key()
	if srcKey == dstKey {
		return []string{srcKey}
	}

	prev := map[string]string{}
	visited := map[string]bool{srcKey: true}
	queue := []string{srcKey}
	found := false

outer:
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.successors[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			if next == dstKey {
				found = true
				break outer
			}
			queue = append(queue, next)
		}
	}
	if !found {
		return nil
	}

	path := []string{dstKey}
	for path[len(path)-1] != srcKey {
		path = append(path, prev[path[len(path)-1]])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// GetVectorClock returns the vector clock computed for n by RunVectorClock.
func (g *Graph) GetVectorClock(n *types.Node) []int {
	return g.vc[n.Key()]
}

// CycleEdge is one edge of a detected cycle, reported with both endpoints'
// ranks so cross-rank cycles (the only ones that indicate a real ordering
// violation) can be told apart from same-rank artifacts.
type CycleEdge struct {
	Head, Tail     string
	HeadRank, TailRank int
}

// CheckCycles reports whether the graph contains a cycle, and if so returns
// the cycle's edges restricted to those crossing a rank boundary — a
// same-rank cycle cannot occur (program order is a total order within a
// rank), so any cycle found must include at least one cross-rank edge.
func (g *Graph) CheckCycles() (bool, []CycleEdge) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.byKey))
	var cyclePath []string
	var found bool

	var visit func(key string) bool
	visit = func(key string) bool {
		color[key] = gray
		cyclePath = append(cyclePath, key)
		for next := range g.successors[key] {
			switch color[next] {
			case gray:
				for i, k := range cyclePath {
					if k == next {
						cyclePath = cyclePath[i:]
						break
					}
				}
				cyclePath = append(cyclePath, next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		cyclePath = cyclePath[:len(cyclePath)-1]
		color[key] = black
		return false
	}

	for key := range g.byKey {
		if color[key] == white {
			if visit(key) {
				found = true
				break
			}
		}
	}
	if !found {
		return false, nil
	}

	var cycle []CycleEdge
	for i := 0; i+1 < len(cyclePath); i++ {
		h, t := cyclePath[i], cyclePath[i+1]
		hr, tr := keyRank(h), keyRank(t)
		if hr != tr {
			cycle = append(cycle, CycleEdge{Head: h, Tail: t, HeadRank: hr, TailRank: tr})
		}
	}
	return true, cycle
}

// keyRank extracts the rank prefix of a node key ("rank-seq_id-func").
func keyRank(key string) int {
	var rank int
	fmt.Sscanf(key, "%d-", &rank)
	return rank
}
