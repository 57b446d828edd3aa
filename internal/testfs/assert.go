package testfs

import (
	"testing"

	"github.com/ivoronin/verifyio/internal/types"
)

// AssertViolationCount fails the test unless violations equals want.
func AssertViolationCount(t *testing.T, violations int, want int) {
	t.Helper()
	if violations != want {
		t.Errorf("violation count = %d, want %d", violations, want)
	}
}

// FindNode returns the node on rank with the given function name at its
// nth occurrence (0-indexed), failing the test if fewer than n+1 exist.
func FindNode(t *testing.T, nodes []*types.Node, rank int, funcName string, occurrence int) *types.Node {
	t.Helper()

	seen := 0
	for _, n := range nodes {
		if n.Rank != rank || n.Func != funcName {
			continue
		}
		if seen == occurrence {
			return n
		}
		seen++
	}
	t.Fatalf("no %s occurrence %d found on rank %d", funcName, occurrence, rank)
	return nil
}
