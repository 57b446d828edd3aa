// Package verifier checks whether the conflicting I/O operations found in a
// trace are properly synchronized under a chosen consistency semantics,
// using one of four interchangeable algorithms to answer the underlying
// happens-before question.
package verifier

import "github.com/ivoronin/verifyio/internal/types"

// Semantics selects which consistency model a conflicting pair must satisfy
// to be considered properly synchronized.
type Semantics string

const (
	POSIX   Semantics = "POSIX"
	Commit  Semantics = "Commit"
	Session Semantics = "Session"
	MPIIO   Semantics = "MPI-IO"
	Custom  Semantics = "Custom"
)

// Algorithm selects which technique answers "does v1 happen before v2" once
// the semantics has resolved a conflicting pair down to its witness nodes.
type Algorithm int

const (
	// GraphReachability walks the happens-before DAG directly (has_path).
	GraphReachability Algorithm = 1
	// TransitiveClosure is accepted for compatibility but always falls back
	// to VectorClock: a full transitive closure is strictly more expensive
	// to compute and answers exactly the same question.
	TransitiveClosure Algorithm = 2
	// VectorClock compares precomputed vector clock components.
	VectorClock Algorithm = 3
	// OnTheFlyMPI scans the matched-edge map directly; its graph carries
	// program-order edges only (used for witness resolution), with no
	// synchronization edges, cycle check or vector clocks.
	OnTheFlyMPI Algorithm = 4
)

var syncFuncNames = map[Semantics][2][]string{
	Commit:  {{"fsync", "close", "fclose"}, nil},
	Session: {{"close", "fclose", "fsync"}, {"open", "fopen", "fsync"}},
}

func toFuncSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// resolver narrows a conflicting pair (n1, n2) down to the two "witness"
// nodes whose happens-before relationship actually needs checking under a
// given semantics — ported from verify_pair_proper_synchronization's
// per-semantics v1/v2 resolution.
type resolver struct {
	semantics    Semantics
	algorithm    Algorithm
	g            HBGraph
	customString string
}

// HBGraph is the subset of *graph.Graph the verifier needs for program-order
// queries, kept as an interface so witness resolution can be unit tested
// without constructing a full graph.
type HBGraph interface {
	NextPONode(current *types.Node, funcs map[string]bool) *types.Node
	PrevPONode(current *types.Node, funcs map[string]bool) *types.Node
}

// resolve returns the witness pair (v1, v2) for n1/n2 under r's semantics,
// or ok=false if no witness exists (e.g. n1 is never followed by a closing
// sync call); the caller then counts the pair as unsynchronized.
func (r *resolver) resolve(n1, n2 *types.Node) (v1, v2 *types.Node, ok bool) {
	switch r.semantics {
	case POSIX:
		return n1, n2, true

	case Commit:
		v1 = r.g.NextPONode(n1, toFuncSet(syncFuncNames[Commit][0]))
		v2 = n2

	case Session:
		v1 = r.g.NextPONode(n1, toFuncSet(syncFuncNames[Session][0]))
		v2 = r.g.PrevPONode(n2, toFuncSet(syncFuncNames[Session][1]))

	case MPIIO:
		nextSync := r.g.NextPONode(n1, toFuncSet([]string{"MPI_File_close", "MPI_File_sync"}))
		prevSync := r.g.PrevPONode(n2, toFuncSet([]string{"MPI_File_open", "MPI_File_sync"}))
		if nextSync == nil || prevSync == nil {
			return nil, nil, false
		}
		if r.algorithm == OnTheFlyMPI {
			v1 = nextSync
		} else {
			// Two syncs in hand; v1 is the node immediately following
			// the first sync (in a sync-barrier-sync pattern, the
			// barrier). No check is made of what that node is.
			v1 = r.g.NextPONode(nextSync, nil)
		}
		v2 = prevSync

	case Custom:
		v1, v2 = resolveCustom(r.customString, n1, n2, r.g)

	default:
		return nil, nil, false
	}

	if v1 == nil || v2 == nil {
		return nil, nil, false
	}
	return v1, v2, true
}
