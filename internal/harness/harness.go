package harness

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

// CompileFunc turns a formula into a model spec. compiler.Compile is the
// default; tests substitute their own to exercise failure paths.
type CompileFunc func(formula string) (*ir.ModelSpec, error)

// Harness runs conformance cases against a compiler.
type Harness struct {
	compile CompileFunc
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithCompiler replaces the compiler under test.
func WithCompiler(fn CompileFunc) Option {
	return func(h *Harness) { h.compile = fn }
}

// WithLogger sets the logger used to report case outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a harness. Without options it uses compiler.Compile and
// discards logs.
func New(opts ...Option) *Harness {
	h := &Harness{
		compile: compiler.Compile,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run compiles one case and checks its expectations.
//
// Execution is deterministic: the same case against the same compiler
// always yields the same result.
func (h *Harness) Run(c Case) *Result {
	result := NewResult(c)
	result.Spec, result.Err = h.compile(c.Formula)
	if result.Err == nil && result.Spec == nil {
		result.Err = fmt.Errorf("compiler returned no spec and no error")
	}
	checkExpect(result, c.Expect)

	h.logger.Debug("case finished",
		"case", c.Name,
		"pass", result.Pass,
		"failures", len(result.Errors))
	return result
}

// RunSuite runs every case of s in order.
func (h *Harness) RunSuite(s *Suite) []*Result {
	results := make([]*Result, 0, len(s.Cases))
	for _, c := range s.Cases {
		results = append(results, h.Run(c))
	}
	h.logger.Info("suite finished",
		"suite", s.Name,
		"cases", len(results),
		"failed", countFailed(results))
	return results
}

// Run compiles c with the default harness.
func Run(c Case) *Result {
	return New().Run(c)
}

// LoadSuites loads every *.yaml suite in dir, sorted by file name.
func LoadSuites(dir string) ([]*Suite, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	suites := make([]*Suite, 0, len(paths))
	for _, p := range paths {
		s, err := LoadSuite(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func countFailed(results []*Result) int {
	n := 0
	for _, r := range results {
		if !r.Pass {
			n++
		}
	}
	return n
}
