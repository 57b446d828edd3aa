// Package trace loads a recorded multi-process execution trace from disk:
// the process count and function-name table (recorder.mt), each rank's
// sequence of logged calls, and the conflicting-I/O-operation pairs
// (conflicts.dat) that drive verification.
//
// # Architecture Overview
//
// Per-rank record files are independent of one another, so loading them
// is a natural fan-out/fan-in: one worker goroutine per rank, bounded by
// a semaphore, feeding a single collector that assembles the final
// per-rank record table. This mirrors the scanning stage of this
// pipeline's teacher lineage (one goroutine per filesystem subtree there,
// one goroutine per rank here).
//
// The real Recorder toolchain reads records through a native shared
// library (see RECORDER_INSTALL_PATH below); this package honors that
// environment-variable contract (its absence is a fatal configuration
// error) but loads records itself, in pure Go, rather than linking
// against that library — there is no cgo binding in this corpus to build
// on, and the native reader is explicitly a data-format contract, not an
// algorithm, for verification purposes.
package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/verifyio/internal/progress"
	"github.com/ivoronin/verifyio/internal/types"
)

// InstallPathEnv is the environment variable naming the Recorder
// installation; its absence is a fatal configuration error.
const InstallPathEnv = "RECORDER_INSTALL_PATH"

// CheckInstallPath verifies RECORDER_INSTALL_PATH is set and that the
// reader library it names actually exists, matching the fatal startup
// check every run of the original tool performs.
func CheckInstallPath() error {
	root := os.Getenv(InstallPathEnv)
	if root == "" {
		return fmt.Errorf("%s environment variable is not set; set it to the path where Recorder is installed", InstallPathEnv)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", InstallPathEnv, err)
	}
	libPath := filepath.Join(absRoot, "lib", "libreader.so")
	if _, err := os.Stat(libPath); err != nil {
		return fmt.Errorf("could not find Recorder reader library at %s: %w", libPath, err)
	}
	return nil
}

// Trace is a fully loaded execution trace: the function-name table, every
// rank's record sequence, and the raw conflict pairs read from disk.
type Trace struct {
	NProcs    int
	Funcs     []string
	Records   [][]types.Record // Records[rank][seq_id]
	Conflicts []ConflictPairs
}

// FuncName returns the function name logged at (rank, seqID).
func (t *Trace) FuncName(rank, seqID int) string {
	return t.Funcs[t.Records[rank][seqID].FuncID]
}

// Reader loads a trace directory into memory.
//
// The reader is designed for single-use: create with New(), call Run() once.
type Reader struct {
	dir          string
	workers      int
	showProgress bool
	errCh        chan error
}

// New creates a Reader for the trace directory at dir.
func New(dir string, workers int, showProgress bool, errCh chan error) *Reader {
	return &Reader{dir: dir, workers: workers, showProgress: showProgress, errCh: errCh}
}

// stats tracks trace-loading progress using atomic-free counters: all
// updates happen on the single collector goroutine, so no synchronization
// is required (unlike the scanner's multi-writer stats).
type stats struct {
	ranksLoaded int
	nprocs      int
	records     int
	startTime   time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Loaded %d/%d ranks, %s records in %.1fs",
		s.ranksLoaded, s.nprocs, humanize.Comma(int64(s.records)), time.Since(s.startTime).Seconds())
}

// rankResult carries one rank's loaded records back to the collector.
type rankResult struct {
	rank    int
	records []types.Record
	err     error
}

// Run loads the trace directory and returns the assembled Trace.
//
// Coordination sequence:
//  1. Read recorder.mt for the process count and function table.
//  2. Spawn one worker goroutine per rank, semaphore-bounded by workers.
//  3. Collector goroutine assembles Records[rank] as workers complete.
//  4. Read conflicts.dat once all rank records are in memory.
func (r *Reader) Run() (*Trace, error) {
	nprocs, funcs, err := readMetadata(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read trace metadata: %w", err)
	}

	bar := progress.New(r.showProgress, -1)
	st := &stats{nprocs: nprocs, startTime: time.Now()}
	bar.Describe(st)

	sem := types.NewSemaphore(r.workers)
	resultsCh := make(chan rankResult, nprocs)
	var wg sync.WaitGroup

	for rank := 0; rank < nprocs; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()

			records, err := readRankRecords(r.dir, rank)
			resultsCh <- rankResult{rank: rank, records: records, err: err}
		}(rank)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	records := make([][]types.Record, nprocs)
	var firstErr error
	for res := range resultsCh {
		if res.err != nil {
			r.sendError(fmt.Errorf("rank %d: %w", res.rank, res.err))
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		records[res.rank] = res.records
		st.ranksLoaded++
		st.records += len(res.records)
		bar.Describe(st)
	}
	bar.Finish(st)

	if firstErr != nil {
		return nil, fmt.Errorf("load trace records: %w", firstErr)
	}

	conflicts, err := readConflicts(r.dir, nprocs)
	if err != nil {
		return nil, fmt.Errorf("read conflicts: %w", err)
	}

	return &Trace{NProcs: nprocs, Funcs: funcs, Records: records, Conflicts: conflicts}, nil
}

// sendError sends an error to the errors channel if it's not nil.
func (r *Reader) sendError(err error) {
	if r.errCh != nil {
		r.errCh <- err
	}
}
