package testfs

import (
	"testing"
)

// TestSowTraceRoundTrip tests that a written trace directory reads back
// with identical function names, record counts, and conflict groups.
func TestSowTraceRoundTrip(t *testing.T) {
	spec := TraceSpec{
		Funcs: []string{"write", "MPI_Send", "MPI_Recv"},
		Ranks: [][]RecordSpec{
			{{Func: "write", Args: []string{"/data/a.txt"}}, {Func: "MPI_Send"}},
			{{Func: "MPI_Recv"}, {Func: "write", Args: []string{"/data/a.txt"}}},
		},
		Conflicts: []ConflictSpec{
			{C1Rank: 0, C1SeqID: 0, C2s: [][]int{nil, {1}}},
		},
	}

	h := New(t, spec)
	tr := h.Load()

	if tr.NProcs != 2 {
		t.Errorf("NProcs = %d, want 2", tr.NProcs)
	}
	if len(tr.Funcs) != 3 {
		t.Errorf("len(Funcs) = %d, want 3", len(tr.Funcs))
	}
	if len(tr.Records[0]) != 2 || len(tr.Records[1]) != 2 {
		t.Fatalf("unexpected record counts: %d, %d", len(tr.Records[0]), len(tr.Records[1]))
	}
	if tr.FuncName(0, 0) != "write" {
		t.Errorf("rank 0 record 0 func = %q, want write", tr.FuncName(0, 0))
	}
	if tr.Records[0][0].Args[0] != "/data/a.txt" {
		t.Errorf("rank 0 record 0 arg = %q, want /data/a.txt", tr.Records[0][0].Args[0])
	}

	if len(tr.Conflicts) != 1 {
		t.Fatalf("len(Conflicts) = %d, want 1", len(tr.Conflicts))
	}
	group := tr.Conflicts[0]
	if group.C1Rank != 0 || group.C1SeqID != 0 {
		t.Errorf("C1 = (%d,%d), want (0,0)", group.C1Rank, group.C1SeqID)
	}
	if len(group.C2s[1]) != 1 || group.C2s[1][0] != 1 {
		t.Errorf("C2s[1] = %v, want [1]", group.C2s[1])
	}
}

// TestSowTraceUnknownFuncFails tests that a record referencing a function
// absent from the function table is rejected.
func TestSowTraceUnknownFuncFails(t *testing.T) {
	dir := t.TempDir()
	spec := TraceSpec{
		Funcs: []string{"write"},
		Ranks: [][]RecordSpec{{{Func: "nonexistent"}}},
	}
	if err := SowTrace(dir, spec); err == nil {
		t.Error("expected error for unknown function name")
	}
}

// TestSowTraceCallDepthPreserved tests that call-depth bytes survive the
// write/read round trip, since call-chain reconstruction depends on them.
func TestSowTraceCallDepthPreserved(t *testing.T) {
	spec := TraceSpec{
		Funcs: []string{"MPI_File_write_at_all", "write", "pwrite64"},
		Ranks: [][]RecordSpec{
			{
				{Func: "MPI_File_write_at_all", CallDepth: 0},
				{Func: "write", CallDepth: 1},
				{Func: "pwrite64", CallDepth: 2},
			},
		},
	}

	h := New(t, spec)
	tr := h.Load()

	depths := []uint8{0, 1, 2}
	for i, want := range depths {
		if tr.Records[0][i].CallDepth != want {
			t.Errorf("record %d CallDepth = %d, want %d", i, tr.Records[0][i].CallDepth, want)
		}
	}
}
