package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// conflictsFile is the name of the conflict-pairs binary file emitted
// alongside the per-rank trace records.
const conflictsFile = "conflicts.dat"

// ConflictPairs is a conflict group as read directly off disk, before Node
// objects have been materialized: C1 is (rank, seq_id); C2s[rank] is the
// (unsorted) list of seq_ids on that rank conflicting with C1.
type ConflictPairs struct {
	C1Rank, C1SeqID int
	C2s             [][]int // indexed by rank
}

// readConflicts reads every conflict group from <dir>/conflicts.dat.
//
// Each group is encoded as a header (c1_rank:int32, c1_seq_id:int32,
// num_pairs:uint64 — an 8-byte platform size_t) followed by num_pairs
// (c2_rank:int32, c2_seq_id:int32) pairs.
func readConflicts(dir string, nprocs int) ([]ConflictPairs, error) {
	f, err := os.Open(filepath.Join(dir, conflictsFile))
	if err != nil {
		return nil, fmt.Errorf("open conflicts file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var groups []ConflictPairs
	for {
		group, err := readOneConflictGroup(r, nprocs)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func readOneConflictGroup(r *bufio.Reader, nprocs int) (ConflictPairs, error) {
	var header struct {
		C1Rank   int32
		C1SeqID  int32
		NumPairs uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if err == io.EOF {
			return ConflictPairs{}, io.EOF
		}
		return ConflictPairs{}, fmt.Errorf("read conflict group header: %w", err)
	}

	c2s := make([][]int, nprocs)
	for i := uint64(0); i < header.NumPairs; i++ {
		var pair struct {
			Rank, SeqID int32
		}
		if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
			return ConflictPairs{}, fmt.Errorf("read conflict pair %d: %w", i, err)
		}
		c2s[pair.Rank] = append(c2s[pair.Rank], int(pair.SeqID))
	}

	return ConflictPairs{
		C1Rank:  int(header.C1Rank),
		C1SeqID: int(header.C1SeqID),
		C2s:     c2s,
	}, nil
}
