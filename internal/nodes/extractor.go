// Package nodes extracts VerifyIO graph vertices from a loaded trace:
// the MPI/metadata calls relevant to synchronization matching, and the
// conflicting I/O operations named in the trace's conflict-pairs file.
//
// Extraction is a single CPU-bound pass over already-loaded records (no
// I/O here — the trace package owns that), so it follows the teacher's
// single-threaded screening idiom rather than scanner's fan-out: one
// New()/Run() component, a stats struct, a spinner progress bar.
package nodes

import (
	"fmt"
	"strings"
	"time"

	"github.com/ivoronin/verifyio/internal/progress"
	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/types"
)

// Extractor builds VerifyIO nodes and conflict groups from a loaded trace.
//
// The extractor is designed for single-use: create with New(), call Run() once.
type Extractor struct {
	trace        *trace.Trace
	showProgress bool
}

// New creates an Extractor for tr.
func New(tr *trace.Trace, showProgress bool) *Extractor {
	return &Extractor{trace: tr, showProgress: showProgress}
}

// stats tracks extraction progress.
type stats struct {
	mpiNodes      int
	metaNodes     int
	conflictNodes int
	conflictGroups int
	startTime     time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Extracted %d MPI + %d metadata + %d conflict nodes, %d conflict groups in %.1fs",
		s.mpiNodes, s.metaNodes, s.conflictNodes, s.conflictGroups, time.Since(s.startTime).Seconds())
}

// Result holds the per-rank, index-assigned node lists and the materialized
// conflict groups, ready for MPI matching and graph construction.
type Result struct {
	PerRank []types.NodeSlice // PerRank[rank], sorted by SeqID, Index assigned
	Groups  []types.ConflictGroup
}

// Run extracts nodes and conflict groups.
//
// Processing steps (spec.md §4.2):
//  1. For every record in every rank, keep it as a node if its function is
//     an accepted MPI call or accepted metadata call, setting FileH from
//     the appropriate argument.
//  2. For every conflict group in the trace, materialize VerifyIO nodes for
//     C1 and every C2, deduplicated by (rank, seq_id), and append any not
//     already produced by step 1 to their rank's node list.
//  3. Sort each rank's node list by SeqID and assign Index.
func (e *Extractor) Run() Result {
	bar := progress.New(e.showProgress, -1)
	st := &stats{startTime: time.Now()}
	bar.Describe(st)

	perRank := make([][]*types.Node, e.trace.NProcs)
	for rank := 0; rank < e.trace.NProcs; rank++ {
		for seqID, rec := range e.trace.Records[rank] {
			fn := e.trace.Funcs[rec.FuncID]
			switch {
			case IsAcceptedMPIFunc(fn):
				n := &types.Node{Rank: rank, SeqID: seqID, Func: fn}
				if strings.HasPrefix(fn, "MPI_File") && len(rec.Args) > 0 {
					n.FileH = rec.Args[0]
				}
				perRank[rank] = append(perRank[rank], n)
				st.mpiNodes++
			case IsAcceptedMetaFunc(fn):
				n := &types.Node{Rank: rank, SeqID: seqID}
				n.Func = fn
				if len(rec.Args) > 0 {
					n.FileH = rec.Args[0]
				}
				perRank[rank] = append(perRank[rank], n)
				st.metaNodes++
			}
		}
	}
	bar.Describe(st)

	groups := e.buildConflictGroups(perRank, st)
	bar.Describe(st)

	result := Result{
		PerRank: make([]types.NodeSlice, e.trace.NProcs),
		Groups:  groups,
	}
	for rank, ns := range perRank {
		sorted := types.NewNodeSlice(ns)
		for i, n := range sorted.Items() {
			n.Index = i
		}
		result.PerRank[rank] = sorted
	}

	bar.Finish(st)
	return result
}

// rankSeqID identifies a node by its position in the trace, independent of
// which list (MPI/metadata pass vs. conflict pass) produced it.
type rankSeqID struct{ rank, seqID int }

// buildConflictGroups materializes VerifyIO nodes for every conflict
// pair named in the trace, deduplicating nodes that appear as C1 or C2
// of more than one group, and appends any newly created node to its
// rank's node list.
func (e *Extractor) buildConflictGroups(perRank [][]*types.Node, st *stats) []types.ConflictGroup {
	seen := make(map[rankSeqID]*types.Node)
	for _, ns := range perRank {
		for _, n := range ns {
			seen[rankSeqID{n.Rank, n.SeqID}] = n
		}
	}

	materialize := func(rank, seqID int) *types.Node {
		key := rankSeqID{rank, seqID}
		if n, ok := seen[key]; ok {
			return n
		}
		n := &types.Node{Rank: rank, SeqID: seqID, Func: e.trace.FuncName(rank, seqID)}
		seen[key] = n
		perRank[rank] = append(perRank[rank], n)
		st.conflictNodes++
		return n
	}

	groups := make([]types.ConflictGroup, 0, len(e.trace.Conflicts))
	for _, raw := range e.trace.Conflicts {
		c1 := materialize(raw.C1Rank, raw.C1SeqID)

		c2s := make([]types.NodeSlice, e.trace.NProcs)
		for rank, seqIDs := range raw.C2s {
			rankNodes := make([]*types.Node, 0, len(seqIDs))
			for _, seqID := range seqIDs {
				rankNodes = append(rankNodes, materialize(rank, seqID))
			}
			c2s[rank] = types.NewNodeSlice(rankNodes)
		}

		groups = append(groups, types.ConflictGroup{C1: c1, C2s: c2s})
		st.conflictGroups++
	}
	return groups
}
