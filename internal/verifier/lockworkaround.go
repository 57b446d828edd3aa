package verifier

import (
	"github.com/ivoronin/verifyio/internal/trace"
	"github.com/ivoronin/verifyio/internal/types"
)

// defaultLockWindow is the number of records scanned on either side of n1
// to look for an fcntl/flock call, matching the original coarse workaround.
const defaultLockWindow = 5

// protectedByLock reports whether n1's rank shows an fcntl or flock call
// within lockWindow records of n1.
//
// This is an explicitly coarse approximation carried over unchanged: it
// only checks for the existence of a locking call nearby, not whether the
// lock was actually acquired/released around n1, nor whether it names the
// same file. A pair inside this window is treated as synchronized
// regardless of semantics or algorithm.
func protectedByLock(tr *trace.Trace, n1 *types.Node, lockWindow int) bool {
	records := tr.Records[n1.Rank]
	lo := n1.SeqID - lockWindow
	if lo < 0 {
		lo = 0
	}
	hi := n1.SeqID + lockWindow + 1
	if hi > len(records) {
		hi = len(records)
	}
	for _, rec := range records[lo:hi] {
		fn := tr.Funcs[rec.FuncID]
		if fn == "fcntl" || fn == "flock" {
			return true
		}
	}
	return false
}
