package matcher

import (
	"fmt"
	"sort"

	"github.com/ivoronin/verifyio/internal/types"
)

// findWaitTestCall locates the wait/test call on nb.Rank that completes the
// non-blocking call nb, honoring that MPI implementations may reuse
// request ids: the match must be the first queued wait/test call whose
// SeqID is strictly after nb's.
//
// When needMatchSrcTag is set (used only for ANY_SOURCE/ANY_TAG receives),
// the caller additionally supplies the actual sender's rank/tag: a queued
// wait/test call that records a src/tag must carry those values, while one
// that records neither (decodeCall never fills them for wait/test calls)
// is matched on the SeqID order alone.
func findWaitTestCall(h *helper, nb *call, needMatchSrcTag bool, src, tag int) (*call, string) {
	queue, ok := h.waitTest[nb.Rank][nb.Req]
	if !ok {
		return nil, fmt.Sprintf("no matching wait/test call for rank %d req %s", nb.Rank, nb.Req)
	}
	if len(queue) == 0 {
		return nil, "matching wait/test calls have been removed"
	}

	idx := -1
	for i, wt := range queue {
		if wt.SeqID <= nb.SeqID {
			continue
		}
		if needMatchSrcTag && (wt.Src != AnySource || wt.RTag != AnyTag) {
			if wt.Src != src || wt.RTag != tag {
				continue
			}
		}
		idx = i
		break
	}
	if idx == -1 {
		return nil, ""
	}

	matched := queue[idx]
	h.waitTest[nb.Rank][nb.Req] = append(queue[:idx], queue[idx+1:]...)
	return matched, ""
}

// matchCollective resolves every rank's participation in one collective
// operation into a single MPIEdge, consuming one queued call per
// participating rank.
func matchCollective(mpiCall *call, h *helper) (types.MPIEdge, []string) {
	var warnings []string
	callType := h.callType(mpiCall.Func)
	edge := types.MPIEdge{CallType: toTypesCallType(callType)}

	add := func(c *call) {
		n := c.toNode()
		switch callType {
		case callAllToAll:
			edge.Group = append(edge.Group, n)
		case callOneToMany:
			if c.Rank == h.localToGlobal(c.Comm, c.Src) {
				edge.Root = n
			} else {
				edge.Rest = append(edge.Rest, n)
			}
		case callManyToOne:
			if c.Rank == h.localToGlobal(c.Comm, c.Src) {
				edge.Sink = n
			} else {
				edge.Contributors = append(edge.Contributors, n)
			}
		}
	}

	key := mpiCall.Key()
	for rank := 0; rank < h.nprocs; rank++ {
		indices, ok := h.collQueue[rank][key]
		if !ok || len(indices) == 0 {
			continue
		}
		collCall := h.allCalls[rank][indices[0]]

		if mpiCall.IsBlocking() {
			add(collCall)
		} else if wt, warn := findWaitTestCall(h, collCall, false, 0, 0); wt != nil {
			add(wt)
		} else if warn != "" {
			warnings = append(warnings, warn)
		}

		h.collQueue[rank][key] = indices[1:]
		if len(h.collQueue[rank][key]) == 0 {
			delete(h.collQueue[rank], key)
		}
		collCall.Matched = true
	}

	mpiCall.Matched = true
	return edge, warnings
}

// recvCandidate is one queued receive eligible to match an incoming send,
// tagged with the bucket it came from so a match can be removed from the
// right queue.
type recvCandidate struct {
	index  int // index into allCalls[dstRank]
	bucket int // 0 = concrete-source queue, 1 = ANY_SOURCE queue
	pos    int // position within that bucket's slice
}

// mergeRecvCandidates combines the concrete (dst, src) receive queue with
// dst's ANY_SOURCE wildcard queue, in program order (by SeqID), so a send
// matches whichever was posted first regardless of which bucket it landed
// in at enqueue time.
func mergeRecvCandidates(h *helper, globalDst, globalSrc int) []recvCandidate {
	concrete := h.recvQueue[globalDst][globalSrc]
	wildcard := h.recvQueueAny[globalDst]

	candidates := make([]recvCandidate, 0, len(concrete)+len(wildcard))
	for pos, idx := range concrete {
		candidates = append(candidates, recvCandidate{index: idx, bucket: 0, pos: pos})
	}
	for pos, idx := range wildcard {
		candidates = append(candidates, recvCandidate{index: idx, bucket: 1, pos: pos})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ci := h.allCalls[globalDst][candidates[i].index]
		cj := h.allCalls[globalDst][candidates[j].index]
		return ci.SeqID < cj.SeqID
	})
	return candidates
}

// matchPt2pt resolves one send call against the matching receive on its
// destination rank, following the receive queue FIFO order per (dst, src)
// pair and honoring MPI_ANY_SOURCE/MPI_ANY_TAG wildcards on the receive
// side: a receive posted with ANY_SOURCE lives in a dedicated per-rank
// bucket (its sender can't be known at enqueue time) and is matched
// against any send addressed to that rank, in program order alongside the
// concrete-source queue.
func matchPt2pt(sendCall *call, h *helper) (types.MPIEdge, bool, []string) {
	var warnings []string
	headNode := sendCall.toNode()

	comm := sendCall.Comm
	globalDst := h.localToGlobal(comm, sendCall.Dst)
	globalSrc := sendCall.Rank

	if globalDst < 0 || globalDst >= h.nprocs {
		warnings = append(warnings, fmt.Sprintf("unmatched send call: rank %d seq %d (invalid destination)", sendCall.Rank, sendCall.SeqID))
		return types.MPIEdge{}, false, warnings
	}

	var tailNode *types.Node
	candidates := mergeRecvCandidates(h, globalDst, globalSrc)
	matched := recvCandidate{bucket: -1}

	for _, cand := range candidates {
		recvCall := h.allCalls[globalDst][cand.index]
		if recvCall.Comm != comm {
			continue
		}
		if recvCall.RTag != sendCall.STag && recvCall.RTag != AnyTag {
			continue
		}

		if recvCall.IsBlocking() {
			recvCall.Matched = true
			tailNode = recvCall.toNode()
		} else {
			var wt *call
			var warn string
			if recvCall.RTag == AnyTag || recvCall.Src == AnySource {
				wt, warn = findWaitTestCall(h, recvCall, true, sendCall.Rank, sendCall.STag)
			} else {
				wt, warn = findWaitTestCall(h, recvCall, false, 0, 0)
			}
			if wt != nil {
				recvCall.Matched = true
				tailNode = wt.toNode()
			} else {
				warnings = append(warnings, fmt.Sprintf(
					"nonblocking recv could not find matching wait/test call: rank %d seq %d %s", recvCall.Rank, recvCall.SeqID, recvCall.Func))
				if warn != "" {
					warnings = append(warnings, warn)
				}
			}
		}

		if tailNode != nil {
			matched = cand
			break
		}
	}

	if matched.bucket == 0 {
		q := h.recvQueue[globalDst][globalSrc]
		h.recvQueue[globalDst][globalSrc] = append(q[:matched.pos], q[matched.pos+1:]...)
	} else if matched.bucket == 1 {
		q := h.recvQueueAny[globalDst]
		h.recvQueueAny[globalDst] = append(q[:matched.pos], q[matched.pos+1:]...)
	}

	if tailNode == nil {
		warnings = append(warnings, fmt.Sprintf("unmatched send call: rank %d seq %d -> rank %d tag %d", sendCall.Rank, sendCall.SeqID, globalDst, sendCall.STag))
		return types.MPIEdge{}, false, warnings
	}

	sendCall.Matched = true
	return types.MPIEdge{CallType: types.PointToPoint, Head: headNode, Tail: tailNode}, true, warnings
}

func toTypesCallType(t mpiCallType) types.MPICallType {
	switch t {
	case callAllToAll:
		return types.AllToAll
	case callOneToMany:
		return types.OneToMany
	case callManyToOne:
		return types.ManyToOne
	default:
		return types.Other
	}
}

// Result holds the matched synchronization edges plus any non-fatal
// warnings accumulated while matching (spec.md §4.3 "post-match warning
// reporting for residuals").
type Result struct {
	Edges    []types.MPIEdge
	Warnings []string
}

// match runs the full matching algorithm over every accepted MPI call in
// program order, skipping calls already consumed as someone else's
// collective/receive participant.
func match(h *helper) Result {
	var res Result

	for rank := 0; rank < h.nprocs; rank++ {
		for _, c := range h.allCalls[rank] {
			if c.Matched {
				continue
			}
			switch {
			case h.isCollective(c.Func):
				edge, warnings := matchCollective(c, h)
				res.Edges = append(res.Edges, edge)
				res.Warnings = append(res.Warnings, warnings...)
			case h.isSend(c.Func):
				edge, ok, warnings := matchPt2pt(c, h)
				if ok {
					res.Edges = append(res.Edges, edge)
				}
				res.Warnings = append(res.Warnings, warnings...)
			}
		}
	}

	for rank := 0; rank < h.nprocs; rank++ {
		unmatchedRecvs := len(h.recvQueueAny[rank])
		for src := 0; src < h.nprocs; src++ {
			unmatchedRecvs += len(h.recvQueue[rank][src])
		}
		if unmatchedRecvs > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rank %d has %d unmatched recvs", rank, unmatchedRecvs))
		}
		if len(h.collQueue[rank]) > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rank %d has %d unmatched collective keys", rank, len(h.collQueue[rank])))
		}
	}

	return res
}
