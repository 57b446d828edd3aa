package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ivoronin/verifyio/internal/types"
)

// recordFileName returns the path of the per-rank record file for rank.
//
// The native trace format leaves record-file layout as a library-internal
// detail accessed only through the reader library the rest of this package
// honors without linking (see package doc). This module reads rank files
// named "<rank>.trace" under the trace directory, in the layout documented
// on readRankRecords.
func recordFileName(dir string, rank int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.trace", rank))
}

// readRankRecords reads every Record for one rank.
//
// Each record is encoded as:
//
//	func_id:int32 (little-endian), call_depth:uint8, arg_count:uint8,
//	followed by arg_count NUL-terminated UTF-8 strings.
func readRankRecords(dir string, rank int) ([]types.Record, error) {
	f, err := os.Open(recordFileName(dir, rank))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var records []types.Record
	for {
		var funcID int32
		if err := binary.Read(r, binary.LittleEndian, &funcID); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read func_id: %w", err)
		}

		callDepth, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read call_depth: %w", err)
		}
		argCount, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read arg_count: %w", err)
		}

		args := make([]string, argCount)
		for i := range args {
			s, err := r.ReadString(0)
			if err != nil {
				return nil, fmt.Errorf("read arg %d: %w", i, err)
			}
			args[i] = s[:len(s)-1] // drop trailing NUL
		}

		records = append(records, types.Record{
			FuncID:    funcID,
			CallDepth: callDepth,
			Args:      args,
		})
	}

	return records, nil
}
