package verifier

import (
	"strconv"
	"strings"

	"github.com/ivoronin/verifyio/internal/types"
)

// resolveCustom parses a custom semantics string of the form
//
//	c1:<offset>[<func>,<func>,...] & c2:<offset>[<func>,<func>,...]
//
// where offset is a signed integer (e.g. "+1", "-1") of which only the sign
// is used, and resolves n1/n2 to their respective witness nodes: an offset
// of 0 returns the node itself; a positive offset takes one NextPONode step
// through the bracketed function set, a negative offset one PrevPONode
// step. An empty bracket list matches any function (the immediately
// adjacent node).
func resolveCustom(spec string, n1, n2 *types.Node, g HBGraph) (*types.Node, *types.Node) {
	parts := strings.SplitN(spec, "&", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	return resolveClause(parts[0], n1, g), resolveClause(parts[1], n2, g)
}

// resolveClause resolves a single "c1:<offset>[<funcs>]" clause against
// node n.
func resolveClause(clause string, n *types.Node, g HBGraph) *types.Node {
	clause = strings.TrimSpace(clause)
	colon := strings.Index(clause, ":")
	if colon == -1 {
		return nil
	}
	rest := clause[colon+1:]

	bracketStart := strings.Index(rest, "[")
	offsetStr := rest
	var funcList string
	if bracketStart != -1 {
		offsetStr = rest[:bracketStart]
		bracketEnd := strings.Index(rest, "]")
		if bracketEnd > bracketStart {
			funcList = rest[bracketStart+1 : bracketEnd]
		}
	}

	offset, err := strconv.Atoi(strings.TrimSpace(offsetStr))
	if err != nil {
		offset = 0
	}
	if offset == 0 {
		return n
	}

	var funcs map[string]bool
	if strings.TrimSpace(funcList) != "" {
		funcs = map[string]bool{}
		for _, fn := range strings.Split(funcList, ",") {
			funcs[strings.TrimSpace(fn)] = true
		}
	}

	if offset > 0 {
		return g.NextPONode(n, funcs)
	}
	return g.PrevPONode(n, funcs)
}
