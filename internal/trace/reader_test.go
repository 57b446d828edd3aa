package trace

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// Section 1: install path check
// =============================================================================

func TestCheckInstallPathMissingEnvFails(t *testing.T) {
	t.Setenv(InstallPathEnv, "")
	if err := CheckInstallPath(); err == nil {
		t.Error("expected error when RECORDER_INSTALL_PATH is unset")
	}
}

func TestCheckInstallPathMissingLibraryFails(t *testing.T) {
	root := t.TempDir()
	t.Setenv(InstallPathEnv, root)
	if err := CheckInstallPath(); err == nil {
		t.Error("expected error when libreader.so is absent")
	}
}

func TestCheckInstallPathPresentLibrarySucceeds(t *testing.T) {
	root := t.TempDir()
	libDir := filepath.Join(root, "lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(libDir, "libreader.so"), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(InstallPathEnv, root)
	if err := CheckInstallPath(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// =============================================================================
// Section 2: Reader.Run against a hand-written trace directory
// =============================================================================

func writeMetadata(t *testing.T, dir string, nprocs int32, funcs []string) {
	t.Helper()
	path := filepath.Join(dir, "recorder.mt")
	buf := make([]byte, metadataReservedBytes)
	buf[0] = byte(nprocs)
	buf[1] = byte(nprocs >> 8)
	buf[2] = byte(nprocs >> 16)
	buf[3] = byte(nprocs >> 24)
	data := append(buf, []byte(joinNames(funcs))...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func joinNames(funcs []string) string {
	out := ""
	for i, f := range funcs {
		if i > 0 {
			out += "\n"
		}
		out += f
	}
	return out
}

func TestReaderRunLoadsEmptyTrace(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, 1, []string{"MPI_Barrier"})
	if err := os.WriteFile(filepath.Join(dir, "0.trace"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "conflicts.dat"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := New(dir, 2, false, nil).Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if tr.NProcs != 1 {
		t.Errorf("NProcs = %d, want 1", tr.NProcs)
	}
	if len(tr.Funcs) != 1 || tr.Funcs[0] != "MPI_Barrier" {
		t.Errorf("Funcs = %v", tr.Funcs)
	}
	if len(tr.Records[0]) != 0 {
		t.Errorf("expected no records, got %d", len(tr.Records[0]))
	}
}

func TestReaderRunMissingRankFileFails(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, 2, []string{"MPI_Barrier"})
	if err := os.WriteFile(filepath.Join(dir, "0.trace"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// rank 1's trace file is intentionally missing

	_, err := New(dir, 2, false, nil).Run()
	if err == nil {
		t.Error("expected error when a rank's trace file is missing")
	}
}
