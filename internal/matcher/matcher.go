package matcher

import (
	"fmt"
	"time"

	"github.com/ivoronin/verifyio/internal/progress"
	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/types"
)

// Matcher pairs up MPI calls recorded across every rank into synchronization
// edges: sends with receives, and per-communicator collective calls with
// every one of their participants.
//
// Designed for single-use: create with New(), call Run() once.
type Matcher struct {
	trace        *trace.Trace
	mpiSyncCalls bool
	showProgress bool
	errCh        chan error
}

// New creates a Matcher over tr. mpiSyncCalls selects the narrower
// synchronization-only collective classification (spec.md §4.3); errCh, if
// non-nil, receives one entry per residual warning produced while matching.
func New(tr *trace.Trace, mpiSyncCalls, showProgress bool, errCh chan error) *Matcher {
	return &Matcher{trace: tr, mpiSyncCalls: mpiSyncCalls, showProgress: showProgress, errCh: errCh}
}

type stats struct {
	edges, warnings int
	startTime       time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Matched %d synchronization edges (%d warnings) in %.1fs",
		s.edges, s.warnings, time.Since(s.startTime).Seconds())
}

// Run matches every accepted MPI call in m.trace and returns the resulting
// synchronization edges. Residual/unmatched-call warnings are sent to errCh
// as non-fatal errors rather than aborting the run.
func (m *Matcher) Run() []types.MPIEdge {
	bar := progress.New(m.showProgress, -1)
	st := &stats{startTime: time.Now()}
	bar.Describe(st)

	h := newHelper(m.trace, m.mpiSyncCalls)
	h.readCalls()
	bar.Describe(st)

	result := match(h)
	st.edges = len(result.Edges)
	st.warnings = len(result.Warnings)
	bar.Describe(st)

	for _, w := range result.Warnings {
		m.sendWarning(w)
	}

	bar.Finish(st)
	return result.Edges
}

func (m *Matcher) sendWarning(msg string) {
	if m.errCh == nil {
		return
	}
	m.errCh <- fmt.Errorf("%s", msg)
}
