package verifier

import (
	"fmt"
	"strings"

	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/types"
)

// Violation describes one conflicting pair found not to be properly
// synchronized.
type Violation struct {
	N1, N2         *types.Node
	File           string
	LeftCallChain  string
	RightCallChain string
}

// String renders a violation the way --show_details prints one line.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s <--> %s: %s on file %s, properly synchronized: false",
		v.N1, v.LeftCallChain, v.N2, v.RightCallChain, v.File)
}

// Report is the outcome of verifying every conflicting pair in a trace.
type Report struct {
	Violations      []Violation
	TotalConflicts  int
	TotalViolations int

	// Summary tables, populated only when summary collection is enabled.
	RankConflicts [][]int        // RankConflicts[r1][r2]
	FileConflicts map[string]int
	FuncConflicts map[string]int
}

func newReport(nprocs int) *Report {
	matrix := make([][]int, nprocs)
	for i := range matrix {
		matrix[i] = make([]int, nprocs)
	}
	return &Report{
		RankConflicts: matrix,
		FileConflicts: map[string]int{},
		FuncConflicts: map[string]int{},
	}
}

// recordChain mirrors get_call_full_chain/get_call_partial_chain: walking
// backward from a node's own record through decreasing call_depth values to
// reconstruct the nested call stack that produced it.
func recordChain(tr *trace.Trace, n *types.Node, full bool) []int32 {
	records := tr.Records[n.Rank]
	seqID := n.SeqID
	var chain []int32
	seenDepth := map[uint8]bool{}

	for seqID > 0 && records[seqID].CallDepth > 0 {
		rec := records[seqID]
		if full || !seenDepth[rec.CallDepth] {
			chain = append(chain, rec.FuncID)
			seenDepth[rec.CallDepth] = true
		}
		seqID--
	}
	rec := records[seqID]
	if full || !seenDepth[rec.CallDepth] {
		chain = append(chain, rec.FuncID)
	}
	return chain
}

func chainString(tr *trace.Trace, funcIDs []int32) string {
	names := make([]string, len(funcIDs))
	for i, id := range funcIDs {
		names[i] = tr.Funcs[id]
	}
	return strings.Join(names, "-->")
}

// reversed returns a new slice with elements in reverse order.
func reversed(ids []int32) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// recordViolation builds a Violation for the pair (n1, n2) and folds it
// into the report's summary tables.
func recordViolation(tr *trace.Trace, n1, n2 *types.Node, showCallChain bool, report *Report) {
	leftChain := recordChain(tr, n1, showCallChain)
	rightChain := recordChain(tr, n2, showCallChain)
	if len(leftChain) == 0 || len(rightChain) == 0 {
		return
	}

	file := ""
	if recs := tr.Records[n1.Rank]; n1.SeqID < len(recs) && len(recs[n1.SeqID].Args) > 0 {
		file = recs[n1.SeqID].Args[0]
	}

	report.RankConflicts[n1.Rank][n2.Rank]++
	if file != "" {
		report.FileConflicts[file]++
	}
	report.FuncConflicts[tr.Funcs[leftChain[len(leftChain)-1]]]++
	report.FuncConflicts[tr.Funcs[rightChain[len(rightChain)-1]]]++

	report.Violations = append(report.Violations, Violation{
		N1: n1, N2: n2, File: file,
		LeftCallChain:  chainString(tr, reversed(leftChain)),
		RightCallChain: chainString(tr, rightChain),
	})
}

// String renders the full summary tables the way --show_summary prints them.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, strings.Repeat("=", 80))
	fmt.Fprintln(&b, center("Details", 80))
	fmt.Fprintln(&b, strings.Repeat("=", 80))

	fmt.Fprintf(&b, "%-10s %-20s\n", "Rank", "Conflicts")
	fmt.Fprintln(&b, strings.Repeat("-", 30))
	totals := make([]int, len(r.RankConflicts))
	for _, row := range r.RankConflicts {
		for j, v := range row {
			totals[j] += v
		}
	}
	for rank, total := range totals {
		fmt.Fprintf(&b, "%-10d %-20d\n", rank, total)
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "%-50s %-20s\n", "File", "Conflicts")
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	for file, count := range r.FileConflicts {
		fmt.Fprintf(&b, "%-50s %-20d\n", file, count)
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "%-50s %-20s\n", "Function Call", "Conflicts")
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	for fn, count := range r.FuncConflicts {
		fmt.Fprintf(&b, "%-50s %-20d\n", fn, count)
	}
	fmt.Fprintln(&b, strings.Repeat("=", 80))
	return b.String()
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
