package matcher

import (
	"strconv"
	"strings"

	"github.com/ivoronin/verifyio/internal/trace"
)

var sendFuncNames = toSet([]string{"MPI_Send", "MPI_Ssend", "MPI_Issend", "MPI_Isend", "MPI_Sendrecv"})
var recvFuncNames = toSet([]string{"MPI_Recv", "MPI_Irecv", "MPI_Sendrecv"})

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// collectiveFuncNames returns the three collective classification sets
// (one-to-many/bcast, many-to-one/reduce-gather, all-to-all) for the given
// mpi_sync_calls mode.
//
// Per the MPI standard, not every collective call imposes a genuine
// synchronization order; mpiSyncCalls=true narrows the sets to only those
// that do, for checking MPI semantics in isolation from ordinary I/O
// collectives.
func collectiveFuncNames(mpiSyncCalls bool) (bcast, reduceGather, allToAll map[string]bool) {
	if mpiSyncCalls {
		return toSet(nil),
			toSet([]string{"MPI_Reduce_scatter", "MPI_Reduce_scatter_block"}),
			toSet([]string{"MPI_Barrier", "MPI_Allgather", "MPI_Alltoall", "MPI_Alltoallv", "MPI_Alltoallw", "MPI_Allreduce"})
	}
	return toSet([]string{"MPI_Bcast", "MPI_Ibcast"}),
		toSet([]string{"MPI_Reduce", "MPI_Ireduce", "MPI_Gather", "MPI_Igather", "MPI_Gatherv", "MPI_Igatherv"}),
		toSet([]string{
			"MPI_Barrier", "MPI_Allreduce", "MPI_Allgatherv", "MPI_Alltoall", "MPI_Reduce_scatter",
			"MPI_File_open", "MPI_File_close", "MPI_File_read_all", "MPI_File_read_at_all",
			"MPI_File_read_ordered", "MPI_File_write_all", "MPI_File_write_at_all",
			"MPI_File_write_ordered", "MPI_File_set_size", "MPI_File_set_view", "MPI_File_sync",
			"MPI_Comm_dup", "MPI_Comm_split", "MPI_Comm_split_type", "MPI_Cart_create", "MPI_Cart_sub",
		})
}

// helper holds every per-rank data structure the matching algorithm
// needs, as described in spec.md §4.3.
type helper struct {
	trace   *trace.Trace
	nprocs  int

	bcastFuncs, reduceGatherFuncs, allToAllFuncs map[string]bool

	allCalls [][]*call // allCalls[rank], in program order, gap-free index

	recvQueue    [][][]int            // recvQueue[dstRank][srcGlobalRank] -> indexes into allCalls[dstRank]
	recvQueueAny [][]int              // recvQueueAny[dstRank] -> indexes of ANY_SOURCE receives into allCalls[dstRank]
	collQueue    []map[string][]int   // collQueue[rank][key] -> indexes into allCalls[rank]
	waitTest     []map[string][]*call // waitTest[rank][reqID] -> queued wait/test calls

	sendCount []int

	translate map[string][]int // comm name -> local rank -> global rank
}

func newHelper(tr *trace.Trace, mpiSyncCalls bool) *helper {
	bcast, redGat, allToAll := collectiveFuncNames(mpiSyncCalls)
	h := &helper{
		trace:             tr,
		nprocs:            tr.NProcs,
		bcastFuncs:        bcast,
		reduceGatherFuncs: redGat,
		allToAllFuncs:     allToAll,
		allCalls:          make([][]*call, tr.NProcs),
		recvQueue:         make([][][]int, tr.NProcs),
		recvQueueAny:      make([][]int, tr.NProcs),
		collQueue:         make([]map[string][]int, tr.NProcs),
		waitTest:          make([]map[string][]*call, tr.NProcs),
		sendCount:         make([]int, tr.NProcs),
	}
	for rank := 0; rank < tr.NProcs; rank++ {
		h.recvQueue[rank] = make([][]int, tr.NProcs)
		h.collQueue[rank] = make(map[string][]int)
		h.waitTest[rank] = make(map[string][]*call)
	}
	h.translate = h.buildTranslationTable()
	return h
}

func (h *helper) isSend(fn string) bool { return sendFuncNames[fn] }
func (h *helper) isRecv(fn string) bool { return recvFuncNames[fn] }
func (h *helper) isCollective(fn string) bool {
	return h.allToAllFuncs[fn] || h.bcastFuncs[fn] || h.reduceGatherFuncs[fn]
}
func (h *helper) isWaitTest(fn string) bool {
	return strings.HasPrefix(fn, "MPI_Wait") || strings.HasPrefix(fn, "MPI_Test")
}

// callType classifies a collective/send function into the communication
// shape that determines how matching and graph-edge construction proceed.
func (h *helper) callType(fn string) mpiCallType {
	switch {
	case h.isSend(fn):
		return callPointToPoint
	case h.allToAllFuncs[fn]:
		return callAllToAll
	case h.bcastFuncs[fn]:
		return callOneToMany
	case h.reduceGatherFuncs[fn]:
		return callManyToOne
	default:
		return callOther
	}
}

type mpiCallType int

const (
	callPointToPoint mpiCallType = iota
	callAllToAll
	callOneToMany
	callManyToOne
	callOther
)

// localToGlobal translates a rank-local rank id (as seen through comm) to
// its global rank.
func (h *helper) localToGlobal(comm string, local int) int {
	table, ok := h.translate[comm]
	if !ok || local < 0 || local >= len(table) {
		return local
	}
	return table[local]
}

// buildTranslationTable scans every MPI_Comm_split/MPI_Comm_dup/... call
// to learn how each named communicator's local ranks map to world ranks.
func (h *helper) buildTranslationTable() map[string][]int {
	table := map[string][]int{}
	world := make([]int, h.nprocs)
	for i := range world {
		world[i] = i
	}
	table["MPI_COMM_WORLD"] = world

	for rank := 0; rank < h.nprocs; rank++ {
		for _, rec := range h.trace.Records[rank] {
			fn := h.trace.Funcs[rec.FuncID]
			switch fn {
			case "MPI_Comm_split", "MPI_Comm_split_type", "MPI_Comm_dup", "MPI_Cart_create", "MPI_Comm_create", "MPI_Cart_sub":
			default:
				continue
			}
			if len(rec.Args) < 2 {
				continue
			}
			comm := rec.Args[0]
			localRank, err := strconv.Atoi(rec.Args[1])
			if err != nil {
				continue
			}
			if _, ok := table[comm]; !ok {
				fresh := make([]int, h.nprocs)
				copy(fresh, world)
				table[comm] = fresh
			}
			if localRank >= 0 && localRank < h.nprocs {
				table[comm][localRank] = rank
			}
		}
	}
	return table
}

// readCalls populates allCalls and the recv/send/collective/wait-test
// queues from every accepted MPI call in the trace.
func (h *helper) readCalls() {
	for rank := 0; rank < h.nprocs; rank++ {
		for seqID, rec := range h.trace.Records[rank] {
			fn := h.trace.Funcs[rec.FuncID]
			if !isAcceptedMPIFunc(fn) {
				continue
			}

			c := decodeCall(rank, seqID, fn, rec.Args)
			h.allCalls[rank] = append(h.allCalls[rank], c)
			index := len(h.allCalls[rank]) - 1

			if h.isCollective(fn) {
				key := c.Key()
				h.collQueue[rank][key] = append(h.collQueue[rank][key], index)
			}
			if h.isSend(fn) {
				h.sendCount[rank]++
			}
			if h.isRecv(fn) {
				if c.Src == AnySource {
					h.recvQueueAny[rank] = append(h.recvQueueAny[rank], index)
				} else if globalSrc := h.localToGlobal(c.Comm, c.Src); globalSrc >= 0 && globalSrc < h.nprocs {
					h.recvQueue[rank][globalSrc] = append(h.recvQueue[rank][globalSrc], index)
				}
			}
			if h.isWaitTest(fn) {
				for _, req := range c.Reqs {
					h.waitTest[rank][req] = append(h.waitTest[rank][req], c)
				}
			}
		}
	}
}

// isAcceptedMPIFunc duplicates nodes.IsAcceptedMPIFunc's function list to
// avoid an import cycle (nodes and matcher both derive from the same
// accepted-function table named in spec.md §4.2/§4.3).
func isAcceptedMPIFunc(fn string) bool { return acceptedMPIFuncSet[fn] }

var acceptedMPIFuncSet = toSet([]string{
	"MPI_Send", "MPI_Ssend", "MPI_Issend", "MPI_Isend",
	"MPI_Recv", "MPI_Sendrecv", "MPI_Irecv",
	"MPI_Wait", "MPI_Waitall", "MPI_Waitany",
	"MPI_Waitsome", "MPI_Test", "MPI_Testall",
	"MPI_Testany", "MPI_Testsome", "MPI_Bcast",
	"MPI_Ibcast", "MPI_Reduce", "MPI_Ireduce",
	"MPI_Gather", "MPI_Igather", "MPI_Gatherv",
	"MPI_Igatherv", "MPI_Barrier", "MPI_Alltoall",
	"MPI_Allreduce", "MPI_Allgatherv",
	"MPI_Reduce_scatter", "MPI_File_open",
	"MPI_File_close", "MPI_File_read_at_all",
	"MPI_File_write_at_all", "MPI_File_set_size",
	"MPI_File_set_view", "MPI_File_sync",
	"MPI_File_read_all", "MPI_File_read_ordered",
	"MPI_File_write_all", "MPI_File_write_ordered",
	"MPI_Comm_dup", "MPI_Comm_split",
	"MPI_Comm_split_type", "MPI_Cart_create",
	"MPI_Cart_sub",
})
