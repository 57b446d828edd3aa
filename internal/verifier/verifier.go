// Package verifier checks every conflicting I/O pair produced by node
// extraction and MPI call matching against a chosen consistency semantics,
// using one of four interchangeable algorithms to decide the underlying
// happens-before question.
package verifier

import (
	"fmt"
	"time"

	"github.com/ivoronin/verifyio/internal/graph"
	"github.com/ivoronin/verifyio/internal/progress"
	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/types"
)

// Config holds every user-facing knob that shapes a verification run.
type Config struct {
	Semantics     Semantics
	Algorithm     Algorithm
	CustomString  string
	LockWindow    int
	ShowSummary   bool
	ShowDetails   bool
	ShowCallChain bool
}

// Verifier checks every conflicting pair against the configured semantics.
//
// The verifier is designed for single-use: create with New(), call Run() once.
type Verifier struct {
	trace        *trace.Trace
	nodesPerRank []types.NodeSlice
	groups       []types.ConflictGroup
	edges        []types.MPIEdge
	cfg          Config
	showProgress bool
	errCh        chan error
	cache        *ReachabilityCache
}

// New creates a Verifier over a fully extracted and matched trace. cache
// may be nil, in which case reachability/vector-clock decisions are
// recomputed on every call instead of being memoized across runs.
func New(tr *trace.Trace, nodesPerRank []types.NodeSlice, groups []types.ConflictGroup, edges []types.MPIEdge, cfg Config, showProgress bool, errCh chan error, cache *ReachabilityCache) *Verifier {
	return &Verifier{
		trace: tr, nodesPerRank: nodesPerRank, groups: groups, edges: edges,
		cfg: cfg, showProgress: showProgress, errCh: errCh, cache: cache,
	}
}

// stats tracks verification progress.
type stats struct {
	conflicts, violations int
	startTime             time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Checked %d conflict pairs, %d violations in %.1fs",
		s.conflicts, s.violations, time.Since(s.startTime).Seconds())
}

// Run builds whatever graph structures the chosen algorithm needs, then
// checks every conflict group, returning the accumulated Report.
//
// Algorithm 4 (on-the-fly) only needs program-order edges to resolve
// witnesses, so it skips synchronization-edge insertion, cycle detection,
// and vector clock propagation entirely; algorithms 1/2/3 build the full
// happens-before graph up front.
func (v *Verifier) Run() *Report {
	bar := progress.New(v.showProgress, -1)
	st := &stats{startTime: time.Now()}
	bar.Describe(st)

	var g *graph.Graph
	var edges edgeMap

	if v.cfg.Algorithm == OnTheFlyMPI {
		g = graph.Build(v.nodesPerRank, nil)
		edges = buildEdgeMap(v.edges, v.trace.NProcs)
	} else {
		g = graph.Build(v.nodesPerRank, v.edges)
		if hasCycle, cycle := g.CheckCycles(); hasCycle {
			v.sendWarning(fmt.Sprintf(
				"happens-before graph contains %d cross-rank cycle edge(s); the traced execution may itself be buggy", len(cycle)))
		}
		if v.cfg.Algorithm == VectorClock || v.cfg.Algorithm == TransitiveClosure {
			g.RunVectorClock()
		}
	}

	r := &resolver{semantics: v.cfg.Semantics, algorithm: v.cfg.Algorithm, g: g, customString: v.cfg.CustomString}
	happensBefore := func(n1, n2 *types.Node) bool { return v.happensBefore(n1, n2, r, g, edges) }

	report := newReport(v.trace.NProcs)
	for _, group := range v.groups {
		for _, c2s := range group.C2s {
			if c2s.Len() == 0 {
				continue
			}
			nodes := c2s.Items()
			report.TotalConflicts += len(nodes)
			st.conflicts += len(nodes)
			v.checkGroup(group.C1, nodes, happensBefore, report, st)
		}
		bar.Describe(st)
	}

	bar.Finish(st)
	return report
}

// checkGroup verifies group.C1 against every node in n2s (one rank's
// conflicting operations), short-circuiting with a three-probe strategy:
// if C1 happens-before the first entry, or the last entry happens-before
// C1, the entire rank's run is synchronized without checking every pair
// individually; if C1 does not happen-before the last entry and the first
// entry does not happen-before C1, every pair is a violation. Otherwise
// each pair is checked in both directions.
func (v *Verifier) checkGroup(n1 *types.Node, n2s []*types.Node, happensBefore func(a, b *types.Node) bool, report *Report, st *stats) {
	if happensBefore(n1, n2s[0]) {
		return
	}
	if happensBefore(n2s[len(n2s)-1], n1) {
		return
	}
	if !happensBefore(n1, n2s[len(n2s)-1]) && !happensBefore(n2s[0], n1) {
		report.TotalViolations += len(n2s)
		st.violations += len(n2s)
		if v.cfg.ShowSummary {
			for _, n2 := range n2s {
				recordViolation(v.trace, n1, n2, v.cfg.ShowCallChain, report)
			}
		}
		return
	}

	for _, n2 := range n2s {
		if happensBefore(n1, n2) || happensBefore(n2, n1) {
			continue
		}
		report.TotalViolations++
		st.violations++
		if v.cfg.ShowSummary {
			recordViolation(v.trace, n1, n2, v.cfg.ShowCallChain, report)
		}
	}
}

// happensBefore answers whether n1 happens-before n2 under the configured
// semantics/algorithm, honoring the lock workaround and the reachability
// cache.
func (v *Verifier) happensBefore(n1, n2 *types.Node, r *resolver, g *graph.Graph, edges edgeMap) bool {
	if protectedByLock(v.trace, n1, v.lockWindow()) {
		return true
	}

	v1, v2, ok := r.resolve(n1, n2)
	if !ok {
		return false
	}

	if v.cache != nil {
		if cached, found := v.cache.Get(v1, v2, v.cfg.Algorithm, v.cfg.Semantics); found {
			return cached
		}
	}

	var result bool
	switch v.cfg.Algorithm {
	case GraphReachability:
		result = g.HasPath(v1, v2)
	case TransitiveClosure, VectorClock:
		vc1 := g.GetVectorClock(v1)
		vc2 := g.GetVectorClock(v2)
		result = vc1[v1.Rank] < vc2[v1.Rank]
	case OnTheFlyMPI:
		result = onTheFlyHappensBefore(edges, v.nodesPerRank, v1, v2)
	}

	if v.cache != nil {
		v.cache.Put(v1, v2, v.cfg.Algorithm, v.cfg.Semantics, result)
	}
	return result
}

func (v *Verifier) lockWindow() int {
	if v.cfg.LockWindow > 0 {
		return v.cfg.LockWindow
	}
	return defaultLockWindow
}

func (v *Verifier) sendWarning(msg string) {
	if v.errCh != nil {
		v.errCh <- fmt.Errorf("%s", msg)
	}
}
