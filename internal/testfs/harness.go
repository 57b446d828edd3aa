package testfs

import (
	"testing"

	"github.com/ivoronin/verifyio/internal/trace"
)

// Harness materializes a TraceSpec into a temporary trace directory and
// loads it back for use against the pipeline stages.
type Harness struct {
	t    *testing.T
	dir  string
	spec TraceSpec
}

// New creates a Harness, writing spec to a fresh t.TempDir() directory.
func New(t *testing.T, spec TraceSpec) *Harness {
	t.Helper()

	dir := t.TempDir()
	if err := SowTrace(dir, spec); err != nil {
		t.Fatalf("sow trace: %v", err)
	}
	return &Harness{t: t, dir: dir, spec: spec}
}

// Dir returns the trace directory's path.
func (h *Harness) Dir() string {
	return h.dir
}

// Load reads the trace directory back with internal/trace.Reader, failing
// the test on error.
func (h *Harness) Load() *trace.Trace {
	h.t.Helper()

	tr, err := trace.New(h.dir, 2, false, nil).Run()
	if err != nil {
		h.t.Fatalf("load trace: %v", err)
	}
	return tr
}
