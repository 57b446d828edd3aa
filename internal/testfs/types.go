// Package testfs provides test infrastructure for synthesizing recorded
// execution traces on disk.
//
// Tests describe a trace declaratively with TraceSpec, pass it to New to
// materialize a recorder.mt/<rank>.trace/conflicts.dat directory in
// t.TempDir(), and load it back with Harness.Load for use against the
// extraction, matching, and verification stages.
//
//	spec := testfs.TraceSpec{
//	    Funcs: []string{"write", "MPI_Send", "MPI_Recv"},
//	    Ranks: [][]testfs.RecordSpec{
//	        {{Func: "write"}, {Func: "MPI_Send"}},
//	        {{Func: "MPI_Recv"}, {Func: "write"}},
//	    },
//	}
//	h := testfs.New(t, spec)
//	tr := h.Load()
package testfs

// TraceSpec describes a complete execution trace directory.
type TraceSpec struct {
	// Funcs is the function-name table; RecordSpec.Func values are
	// resolved against it (a name absent from the table is an error).
	Funcs []string

	// Ranks holds one record sequence per process rank; len(Ranks) is
	// the process count written to recorder.mt.
	Ranks [][]RecordSpec

	// Conflicts lists the conflicting I/O pairs to write to
	// conflicts.dat.
	Conflicts []ConflictSpec
}

// RecordSpec describes one logged call.
type RecordSpec struct {
	// Func names the call; resolved to a FuncID via TraceSpec.Funcs.
	Func string

	// CallDepth is the nested-call depth recorded alongside the call,
	// used by call-chain reconstruction.
	CallDepth uint8

	// Args are the call's string arguments, e.g. a file path as Args[0].
	Args []string
}

// ConflictSpec describes one conflicting-pair group: C1's operation
// against, for every rank, the operations on that rank conflicting with
// it.
type ConflictSpec struct {
	C1Rank, C1SeqID int
	// C2s is indexed by rank; C2s[r] lists seq_ids on rank r conflicting
	// with C1. A nil or short entry means no conflicts on that rank.
	C2s [][]int
}
