package matcher

import (
	"strconv"
	"strings"

	"github.com/ivoronin/verifyio/internal/types"
)

// AnySource and AnyTag are the MPI wildcard sentinel values recorded for
// MPI_ANY_SOURCE and MPI_ANY_TAG.
const (
	AnySource = -1
	AnyTag    = -2
)

// call is one recorded MPI call, with its relevant arguments decoded
// according to funcArgFields below.
type call struct {
	Rank, SeqID int
	Func        string
	Matched     bool

	Src, Dst, STag, RTag int
	Comm                 string
	Req                  string
	Reqs                 []string
	MPIFH                string
}

// Key identifies calls that must match each other as the same collective
// operation: same function, same communicator, same file handle (for
// MPI-IO calls that carry one).
func (c *call) Key() string {
	return c.Func + ";" + c.Comm + ";" + c.MPIFH
}

// IsBlocking reports whether c is a blocking MPI call (its name does not
// start with the "MPI_I" non-blocking prefix).
func (c *call) IsBlocking() bool {
	return !strings.HasPrefix(c.Func, "MPI_I")
}

// funcArgFields names, in order, which fields the decoded record arguments
// populate for each accepted MPI call. A call not listed here keeps only
// the wildcard defaults decodeCall starts from.
var funcArgFields = map[string][]string{
	"MPI_Send":     {"dst", "stag", "comm"},
	"MPI_Ssend":    {"dst", "stag", "comm"},
	"MPI_Issend":   {"dst", "stag", "comm", "req"},
	"MPI_Isend":    {"dst", "stag", "comm", "req"},
	"MPI_Recv":     {"src", "rtag", "comm"},
	"MPI_Sendrecv": {"src", "dst", "stag", "rtag", "comm"},
	"MPI_Irecv":    {"src", "rtag", "comm", "req"},

	"MPI_Wait": {"reqs"}, "MPI_Waitall": {"reqs"}, "MPI_Waitany": {"reqs"}, "MPI_Waitsome": {"reqs"},
	"MPI_Test": {"reqs"}, "MPI_Testall": {"reqs"}, "MPI_Testany": {"reqs"}, "MPI_Testsome": {"reqs"},

	"MPI_Bcast": {"src", "comm"}, "MPI_Ibcast": {"src", "comm", "req"},
	"MPI_Reduce": {"src", "comm"}, "MPI_Ireduce": {"src", "comm", "req"},
	"MPI_Gather": {"src", "comm"}, "MPI_Igather": {"src", "comm", "req"},
	"MPI_Gatherv": {"src", "comm"}, "MPI_Igatherv": {"src", "comm", "req"},

	"MPI_Barrier": {"comm"}, "MPI_Alltoall": {"comm"}, "MPI_Allreduce": {"comm"},
	"MPI_Allgatherv": {"comm"}, "MPI_Reduce_scatter": {"comm"},
	"MPI_Comm_dup": {"comm"}, "MPI_Comm_split": {"comm"}, "MPI_Comm_split_type": {"comm"},
	"MPI_Cart_create": {"comm"}, "MPI_Cart_sub": {"comm"},

	"MPI_File_open": {"mpifh"}, "MPI_File_close": {"mpifh"},
	"MPI_File_read_at_all": {"mpifh"}, "MPI_File_write_at_all": {"mpifh"},
	"MPI_File_set_size": {"mpifh"}, "MPI_File_set_view": {"mpifh"}, "MPI_File_sync": {"mpifh"},
	"MPI_File_read_all": {"mpifh"}, "MPI_File_read_ordered": {"mpifh"},
	"MPI_File_write_all": {"mpifh"}, "MPI_File_write_ordered": {"mpifh"},
}

// decodeCall builds a call from a trace record, mapping its positional
// args onto named fields per funcArgFields.
func decodeCall(rank, seqID int, fn string, args []string) *call {
	c := &call{Rank: rank, SeqID: seqID, Func: fn, Src: AnySource, Dst: AnySource, STag: AnyTag, RTag: AnyTag}

	fields, ok := funcArgFields[fn]
	if !ok {
		return c
	}
	for i, field := range fields {
		if i >= len(args) {
			break
		}
		v := args[i]
		switch field {
		case "src":
			c.Src = atoiOr(v, AnySource)
		case "dst":
			c.Dst = atoiOr(v, AnySource)
		case "stag":
			c.STag = atoiOr(v, AnyTag)
		case "rtag":
			c.RTag = atoiOr(v, AnyTag)
		case "comm":
			c.Comm = v
		case "req":
			c.Req = v
		case "mpifh":
			c.MPIFH = v
		case "reqs":
			c.Reqs = splitReqs(v)
		}
	}
	return c
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// splitReqs parses the bracketed "[123,456,...]" request-id list the
// native reader emits for a single wait/test call's req argument.
func splitReqs(s string) []string {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// toNode produces the graph Node a call contributes once matched.
func (c *call) toNode() *types.Node {
	n := &types.Node{Rank: c.Rank, SeqID: c.SeqID, Func: c.Func}
	if strings.HasPrefix(c.Func, "MPI_File") {
		n.FileH = c.MPIFH
	}
	return n
}
