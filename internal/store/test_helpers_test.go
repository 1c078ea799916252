package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord compiles formula and wraps it in a record for model.
func createTestRecord(t *testing.T, model, formula string) Record {
	t.Helper()
	spec := compileTestSpec(t, formula)
	rec, err := NewRecord(model, "testdata/models.yaml", "", spec)
	if err != nil {
		t.Fatalf("NewRecord() failed: %v", err)
	}
	return rec
}

func compileTestSpec(t *testing.T, formula string) *ir.ModelSpec {
	t.Helper()
	spec, err := compiler.Compile(formula)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", formula, err)
	}
	return spec
}
