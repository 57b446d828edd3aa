package cache

import (
	"path/filepath"
	"testing"
)

// =============================================================================
// Section 1: disabled cache
// =============================================================================

func TestCacheDisabled(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Store("1-0-MPI_Send", "2-0-MPI_Recv", 3, "POSIX", true); err != nil {
		t.Fatalf("Store() on disabled cache returned error: %v", err)
	}
	if _, found := c.Lookup("1-0-MPI_Send", "2-0-MPI_Recv", 3, "POSIX"); found {
		t.Error("Lookup() on disabled cache should never find anything")
	}
}

// =============================================================================
// Section 2: round trip and key discrimination
// =============================================================================

func TestCacheRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := c1.Store("0-1-write", "1-2-MPI_Barrier", 3, "POSIX", true); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if err := c1.Store("0-3-write", "1-4-read", 1, "Commit", false); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	c2, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() second time failed: %v", err)
	}
	defer func() { _ = c2.Close() }()

	if result, found := c2.Lookup("0-1-write", "1-2-MPI_Barrier", 3, "POSIX"); !found || !result {
		t.Errorf("Lookup() = (%v, %v), want (true, true)", result, found)
	}
	if result, found := c2.Lookup("0-3-write", "1-4-read", 1, "Commit"); !found || result {
		t.Errorf("Lookup() = (%v, %v), want (false, true)", result, found)
	}
}

// TestCacheMissOnAlgorithmChange tests that the same node pair under a
// different algorithm is a distinct cache entry.
func TestCacheMissOnAlgorithmChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, _ := Open(cachePath)
	_ = c1.Store("0-1-write", "1-2-read", 1, "POSIX", true)
	_ = c1.Close()

	c2, _ := Open(cachePath)
	defer func() { _ = c2.Close() }()

	if _, found := c2.Lookup("0-1-write", "1-2-read", 3, "POSIX"); found {
		t.Error("Lookup() with a different algorithm should miss")
	}
}

// TestCacheMissOnSemanticsChange tests that the same node pair under a
// different semantics is a distinct cache entry.
func TestCacheMissOnSemanticsChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, _ := Open(cachePath)
	_ = c1.Store("0-1-write", "1-2-read", 3, "POSIX", true)
	_ = c1.Close()

	c2, _ := Open(cachePath)
	defer func() { _ = c2.Close() }()

	if _, found := c2.Lookup("0-1-write", "1-2-read", 3, "Commit"); found {
		t.Error("Lookup() with different semantics should miss")
	}
}

// =============================================================================
// Section 3: self-cleaning
// =============================================================================

func TestSelfCleaning(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, _ := Open(cachePath)
	_ = c1.Store("0-1-write", "1-2-read", 3, "POSIX", true)
	_ = c1.Store("0-5-write", "1-6-read", 3, "POSIX", false)
	_ = c1.Close()

	// Only look up the first entry; the second becomes orphaned.
	c2, _ := Open(cachePath)
	c2.Lookup("0-1-write", "1-2-read", 3, "POSIX")
	_ = c2.Close()

	c3, _ := Open(cachePath)
	defer func() { _ = c3.Close() }()

	if _, found := c3.Lookup("0-1-write", "1-2-read", 3, "POSIX"); !found {
		t.Error("looked-up entry should survive self-cleaning")
	}
	if _, found := c3.Lookup("0-5-write", "1-6-read", 3, "POSIX"); found {
		t.Error("orphaned entry should have been cleaned")
	}
}

// =============================================================================
// Section 4: key determinism
// =============================================================================

func TestMakeKeyDeterministic(t *testing.T) {
	key1 := makeKey("0-1-write", "1-2-read", 3, "POSIX")
	key2 := makeKey("0-1-write", "1-2-read", 3, "POSIX")
	if string(key1) != string(key2) {
		t.Error("makeKey() not deterministic")
	}
}
