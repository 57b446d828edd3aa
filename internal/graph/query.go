package graph

import "github.com/ivoronin/verifyio/internal/types"

// NextPONode returns the next program-order node on current's rank whose
// function is in funcs (or the immediately following node if funcs is
// empty), or nil if none exists.
func (g *Graph) NextPONode(current *types.Node, funcs map[string]bool) *types.Node {
	nodes := g.Nodes[current.Rank].Items()
	if len(funcs) == 0 {
		if current.Index+1 < len(nodes) {
			return nodes[current.Index+1]
		}
		return nil
	}
	for i := current.Index + 1; i < len(nodes); i++ {
		if funcs[nodes[i].Func] {
			return nodes[i]
		}
	}
	return nil
}

// PrevPONode returns the previous program-order node on current's rank
// whose function is in funcs (or the immediately preceding node if funcs is
// empty), or nil if none exists.
func (g *Graph) PrevPONode(current *types.Node, funcs map[string]bool) *types.Node {
	nodes := g.Nodes[current.Rank].Items()
	if len(funcs) == 0 {
		if current.Index-1 >= 0 {
			return nodes[current.Index-1]
		}
		return nil
	}
	for i := current.Index - 1; i >= 0; i-- {
		if funcs[nodes[i].Func] {
			return nodes[i]
		}
	}
	return nil
}

// NextHBNode returns the first node on targetRank whose function is in
// funcs and which is reachable (happens-after) from current.
func (g *Graph) NextHBNode(current *types.Node, funcs map[string]bool, targetRank int) *types.Node {
	for _, candidate := range g.Nodes[targetRank].Items() {
		if funcs[candidate.Func] && g.HasPath(current, candidate) {
			return candidate
		}
	}
	return nil
}
