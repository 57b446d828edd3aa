package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/verifyio/internal/verifier"
)

// validSemantics lists every --semantics value accepted by the verify
// command, in the order they're listed in --help.
var validSemantics = []verifier.Semantics{
	verifier.POSIX, verifier.Commit, verifier.Session, verifier.MPIIO, verifier.Custom,
}

// parseSemantics validates a --semantics flag value.
func parseSemantics(s string) (verifier.Semantics, error) {
	sem := verifier.Semantics(s)
	for _, v := range validSemantics {
		if sem == v {
			return sem, nil
		}
	}
	return "", fmt.Errorf("unknown semantics %q (want one of POSIX, Commit, Session, MPI-IO, Custom)", s)
}

// parseAlgorithm validates a --algorithm flag value.
func parseAlgorithm(n int) (verifier.Algorithm, error) {
	switch verifier.Algorithm(n) {
	case verifier.GraphReachability, verifier.TransitiveClosure, verifier.VectorClock, verifier.OnTheFlyMPI:
		return verifier.Algorithm(n), nil
	default:
		return 0, fmt.Errorf("unknown algorithm %d (want 1-4)", n)
	}
}

// summarizeReport formats the one-line result summary printed after a run,
// using humanize for readable large conflict counts.
func summarizeReport(report *verifier.Report) string {
	if report.TotalViolations == 0 {
		return fmt.Sprintf("no synchronization violations found (%s conflicting pairs checked)",
			humanize.Comma(int64(report.TotalConflicts)))
	}
	return fmt.Sprintf("%s synchronization violation(s) found out of %s conflicting pairs checked",
		humanize.Comma(int64(report.TotalViolations)), humanize.Comma(int64(report.TotalConflicts)))
}
