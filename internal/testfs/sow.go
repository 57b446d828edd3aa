package testfs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const metadataReservedBytes = 1024

// SowTrace writes a TraceSpec to dir as a recorder.mt / <rank>.trace /
// conflicts.dat directory, in the on-disk layout internal/trace reads.
func SowTrace(dir string, spec TraceSpec) error {
	funcIndex := make(map[string]int32, len(spec.Funcs))
	for i, name := range spec.Funcs {
		funcIndex[name] = int32(i)
	}

	if err := sowMetadata(dir, len(spec.Ranks), spec.Funcs); err != nil {
		return fmt.Errorf("sow metadata: %w", err)
	}

	for rank, records := range spec.Ranks {
		if err := sowRankRecords(dir, rank, records, funcIndex); err != nil {
			return fmt.Errorf("sow rank %d: %w", rank, err)
		}
	}

	if err := sowConflicts(dir, spec.Conflicts); err != nil {
		return fmt.Errorf("sow conflicts: %w", err)
	}
	return nil
}

func sowMetadata(dir string, nprocs int, funcs []string) error {
	f, err := os.Create(filepath.Join(dir, "recorder.mt"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := binary.Write(f, binary.LittleEndian, int32(nprocs)); err != nil {
		return err
	}

	pad := make([]byte, metadataReservedBytes-4)
	if _, err := f.Write(pad); err != nil {
		return err
	}

	_, err = f.WriteString(strings.Join(funcs, "\n") + "\n")
	return err
}

func sowRankRecords(dir string, rank int, records []RecordSpec, funcIndex map[string]int32) error {
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%d.trace", rank)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		funcID, ok := funcIndex[rec.Func]
		if !ok {
			return fmt.Errorf("function %q not present in function table", rec.Func)
		}
		if err := binary.Write(w, binary.LittleEndian, funcID); err != nil {
			return err
		}
		if err := w.WriteByte(rec.CallDepth); err != nil {
			return err
		}
		if err := w.WriteByte(byte(len(rec.Args))); err != nil {
			return err
		}
		for _, arg := range rec.Args {
			if _, err := w.WriteString(arg); err != nil {
				return err
			}
			if err := w.WriteByte(0); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func sowConflicts(dir string, groups []ConflictSpec) error {
	f, err := os.Create(filepath.Join(dir, "conflicts.dat"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, g := range groups {
		header := struct {
			C1Rank   int32
			C1SeqID  int32
			NumPairs uint64
		}{int32(g.C1Rank), int32(g.C1SeqID), 0}
		for _, seqIDs := range g.C2s {
			header.NumPairs += uint64(len(seqIDs))
		}
		if err := binary.Write(w, binary.LittleEndian, header); err != nil {
			return err
		}
		for rank, seqIDs := range g.C2s {
			for _, seqID := range seqIDs {
				pair := struct{ Rank, SeqID int32 }{int32(rank), int32(seqID)}
				if err := binary.Write(w, binary.LittleEndian, pair); err != nil {
					return err
				}
			}
		}
	}
	return w.Flush()
}
