package nodes

import (
	"testing"

	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/types"
)

func rec(funcID int32, args ...string) types.Record {
	return types.Record{FuncID: funcID, Args: args}
}

// =============================================================================
// Section 1: accepted-function extraction
// =============================================================================

// TestRunKeepsOnlyAcceptedFuncs tests that only accepted MPI/metadata calls
// become nodes, with unrelated records dropped.
func TestRunKeepsOnlyAcceptedFuncs(t *testing.T) {
	tr := &trace.Trace{
		NProcs: 1,
		Funcs:  []string{"MPI_Barrier", "malloc", "fsync"},
		Records: [][]types.Record{
			{rec(0), rec(1), rec(2)},
		},
	}

	result := New(tr, false).Run()

	if len(result.PerRank[0].Items()) != 2 {
		t.Fatalf("expected 2 nodes (MPI_Barrier, fsync), got %d", len(result.PerRank[0].Items()))
	}
	names := map[string]bool{}
	for _, n := range result.PerRank[0].Items() {
		names[n.Func] = true
	}
	if !names["MPI_Barrier"] || !names["fsync"] {
		t.Errorf("unexpected node set: %v", names)
	}
}

// TestRunAssignsSequentialIndex tests that surviving nodes are indexed in
// SeqID order after extraction.
func TestRunAssignsSequentialIndex(t *testing.T) {
	tr := &trace.Trace{
		NProcs: 1,
		Funcs:  []string{"MPI_Barrier"},
		Records: [][]types.Record{
			{rec(0), rec(0), rec(0)},
		},
	}

	result := New(tr, false).Run()

	for i, n := range result.PerRank[0].Items() {
		if n.Index != i {
			t.Errorf("node %d: Index = %d, want %d", i, n.Index, i)
		}
		if n.SeqID != i {
			t.Errorf("node %d: SeqID = %d, want %d", i, n.SeqID, i)
		}
	}
}

// TestRunSetsFileHForMPIFileCalls tests that MPI_File_* calls record their
// file handle argument as FileH.
func TestRunSetsFileHForMPIFileCalls(t *testing.T) {
	tr := &trace.Trace{
		NProcs: 1,
		Funcs:  []string{"MPI_File_open", "MPI_File_write"},
		Records: [][]types.Record{
			{rec(0, "fh1"), rec(1, "fh1")},
		},
	}

	result := New(tr, false).Run()

	for _, n := range result.PerRank[0].Items() {
		if n.FileH != "fh1" {
			t.Errorf("node %s: FileH = %q, want %q", n.Func, n.FileH, "fh1")
		}
	}
}

// =============================================================================
// Section 2: conflict-group materialization
// =============================================================================

// TestRunMaterializesConflictNodesEvenIfNotAccepted tests that a plain
// "write" call referenced only by a conflict pair still becomes a node,
// independent of the accepted-function sets.
func TestRunMaterializesConflictNodesEvenIfNotAccepted(t *testing.T) {
	tr := &trace.Trace{
		NProcs: 2,
		Funcs:  []string{"write"},
		Records: [][]types.Record{
			{rec(0, "/data/f.dat")},
			{rec(0, "/data/f.dat")},
		},
		Conflicts: []trace.ConflictPairs{
			{C1Rank: 0, C1SeqID: 0, C2s: [][]int{nil, {0}}},
		},
	}

	result := New(tr, false).Run()

	if len(result.PerRank[0].Items()) != 1 || result.PerRank[0].Items()[0].Func != "write" {
		t.Errorf("rank 0 nodes = %v", result.PerRank[0].Items())
	}
	if len(result.PerRank[1].Items()) != 1 || result.PerRank[1].Items()[0].Func != "write" {
		t.Errorf("rank 1 nodes = %v", result.PerRank[1].Items())
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 conflict group, got %d", len(result.Groups))
	}
	if result.Groups[0].C1.Rank != 0 || result.Groups[0].C1.SeqID != 0 {
		t.Errorf("unexpected C1: %+v", result.Groups[0].C1)
	}
}

// TestRunDeduplicatesRepeatedConflictParticipants tests that a node
// appearing as C1 in one group and C2 in another is materialized exactly
// once.
func TestRunDeduplicatesRepeatedConflictParticipants(t *testing.T) {
	tr := &trace.Trace{
		NProcs: 2,
		Funcs:  []string{"write"},
		Records: [][]types.Record{
			{rec(0, "/data/f.dat")},
			{rec(0, "/data/f.dat")},
		},
		Conflicts: []trace.ConflictPairs{
			{C1Rank: 0, C1SeqID: 0, C2s: [][]int{nil, {0}}},
			{C1Rank: 1, C1SeqID: 0, C2s: [][]int{{0}, nil}},
		},
	}

	result := New(tr, false).Run()

	if len(result.PerRank[0].Items()) != 1 {
		t.Errorf("expected rank 0 node materialized once, got %d", len(result.PerRank[0].Items()))
	}
	if len(result.PerRank[1].Items()) != 1 {
		t.Errorf("expected rank 1 node materialized once, got %d", len(result.PerRank[1].Items()))
	}
}
