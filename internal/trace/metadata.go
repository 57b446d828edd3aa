package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// metadataReservedBytes is the size of the fixed metadata block at the
// start of recorder.mt. The function-name table begins immediately after it.
const metadataReservedBytes = 1024

// metadataFile is the name of the trace directory's process-count and
// function-table file.
const metadataFile = "recorder.mt"

// readMetadata reads the process count and the function-name table from
// <dir>/recorder.mt.
//
// Layout: bytes [0,4) hold the process count as a little-endian int32;
// bytes [4,1024) are reserved; the function table follows as newline
// separated UTF-8 names, indexed by the records' FuncID field.
func readMetadata(dir string) (nprocs int, funcs []string, err error) {
	path := filepath.Join(dir, metadataFile)
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var n int32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return 0, nil, fmt.Errorf("read process count: %w", err)
	}

	if _, err := f.Seek(metadataReservedBytes, os.SEEK_SET); err != nil {
		return 0, nil, fmt.Errorf("seek to function table: %w", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		funcs = append(funcs, line)
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, fmt.Errorf("read function table: %w", err)
	}

	return int(n), funcs, nil
}
