package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ivoronin/verifyio/internal/cache"
	"github.com/ivoronin/verifyio/internal/matcher"
	"github.com/ivoronin/verifyio/internal/nodes"
	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/verifier"
	"github.com/spf13/cobra"
)

// verifyOptions holds CLI flags for the verify command.
type verifyOptions struct {
	semanticsStr   string
	algorithmInt   int
	semanticString string
	showDetails    bool
	showSummary    bool
	showCallChain  bool
	workers        int
	noProgress     bool
	mpiSyncCalls   bool
	cacheFile      string
	lockWindow     int
}

// defaultCustomSemantics is the --semantic_string used when --semantics=Custom
// is given without one: the next MPI_File_close/MPI_File_sync after c1 and the
// previous MPI_File_open/MPI_File_sync before c2.
const defaultCustomSemantics = "c1:+1[MPI_File_close, MPI_File_sync] & c2:-1[MPI_File_open, MPI_File_sync]"

// newVerifyCmd creates the verify subcommand.
func newVerifyCmd() *cobra.Command {
	opts := &verifyOptions{
		semanticsStr: string(verifier.MPIIO),
		algorithmInt: int(verifier.VectorClock),
		workers:      runtime.NumCPU(),
		lockWindow:   5,
	}

	cmd := &cobra.Command{
		Use:   "verify traces_folder",
		Short: "Check every conflicting I/O pair in a trace against a consistency semantics",
		Long: `Loads a Recorder execution trace, matches MPI calls into a happens-before
graph, and checks every conflicting I/O operation pair for proper
synchronization under the requested semantics.

Exits 0 whether or not violations were found; use --show_summary or
--show_details to inspect the result. Exits 1 only on a configuration or
trace-loading error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runVerify(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.semanticsStr, "semantics", opts.semanticsStr,
		"Consistency semantics to check: POSIX, Commit, Session, MPI-IO, Custom")
	cmd.Flags().IntVar(&opts.algorithmInt, "algorithm", opts.algorithmInt,
		"Happens-before algorithm: 1=graph reachability, 2=transitive closure, 3=vector clock, 4=on-the-fly MPI scan")
	cmd.Flags().StringVar(&opts.semanticString, "semantic_string", "",
		"Custom semantics DSL for --semantics=Custom (e.g. \"c1:+1[close,fsync] & c2:-1[open]\"); defaults to the MPI_File close/sync and open/sync rule when omitted")
	cmd.Flags().BoolVar(&opts.showDetails, "show_details", false, "Print every violation found")
	cmd.Flags().BoolVar(&opts.showSummary, "show_summary", false, "Print per-rank/file/function violation tables")
	cmd.Flags().BoolVar(&opts.showCallChain, "show_call_chain", false, "Include full call-chain reconstruction in --show_details output")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers for trace loading")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&opts.mpiSyncCalls, "mpi-sync-calls", false, "Narrow collective matching to synchronization-only MPI calls")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to reachability cache file (enables caching across runs)")
	cmd.Flags().IntVar(&opts.lockWindow, "lock-window", opts.lockWindow, "Records to scan on either side of the conflicting operation for a protecting fcntl/flock lock")

	return cmd
}

// drainErrors consumes warnings from a channel and writes them to stderr.
// Clears the progress bar line first to avoid visual collision.
func drainErrors(errs <-chan error) {
	for err := range errs {
		fmt.Fprintf(os.Stderr, "\r\033[Kwarning: %v\n", err)
	}
}

// runVerify executes the verify pipeline: load -> extract -> match -> verify.
func runVerify(tracesFolder string, opts *verifyOptions) error {
	if err := trace.CheckInstallPath(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	semantics, err := parseSemantics(opts.semanticsStr)
	if err != nil {
		return fmt.Errorf("invalid --semantics: %w", err)
	}
	algorithm, err := parseAlgorithm(opts.algorithmInt)
	if err != nil {
		return fmt.Errorf("invalid --algorithm: %w", err)
	}
	customString := opts.semanticString
	if semantics == verifier.Custom && customString == "" {
		customString = defaultCustomSemantics
	}

	showProgress := !opts.noProgress

	errs := make(chan error, 100)
	go drainErrors(errs)
	defer close(errs)

	// Phase 1: load the trace directory.
	tr, err := trace.New(tracesFolder, opts.workers, showProgress, errs).Run()
	if err != nil {
		return fmt.Errorf("load trace: %w", err)
	}

	// Phase 2: extract VerifyIO nodes and conflict groups.
	extracted := nodes.New(tr, showProgress).Run()

	// Phase 3: match MPI calls into synchronization edges.
	edges := matcher.New(tr, opts.mpiSyncCalls, showProgress, errs).Run()

	// Phase 4: open the reachability cache (if enabled) and verify every
	// conflicting pair.
	rawCache, err := cache.Open(opts.cacheFile)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = rawCache.Close() }()
	reachCache := verifier.NewReachabilityCache(rawCache)

	cfg := verifier.Config{
		Semantics:     semantics,
		Algorithm:     algorithm,
		CustomString:  customString,
		LockWindow:    opts.lockWindow,
		ShowSummary:   opts.showSummary || opts.showDetails,
		ShowDetails:   opts.showDetails,
		ShowCallChain: opts.showCallChain,
	}
	report := verifier.New(tr, extracted.PerRank, extracted.Groups, edges, cfg, showProgress, errs, reachCache).Run()

	if opts.showDetails {
		for _, v := range report.Violations {
			fmt.Println(v.String())
		}
	}
	if opts.showSummary {
		fmt.Print(report.String())
	}
	fmt.Println(summarizeReport(report))

	return nil
}
