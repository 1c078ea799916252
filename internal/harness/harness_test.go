package harness

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdrc/internal/ir"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestRun_Pass(t *testing.T) {
	res := Run(Case{
		Name:    "pass",
		Formula: "y ~ C(A + B, Gamma())",
		Expect: Expect{
			Terms:     []string{"A", "B"},
			Intercept: boolPtr(true),
			IRFs:      intPtr(2),
			Coefs:     intPtr(2),
		},
	})

	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
	require.NotNil(t, res.Spec)
	assert.NoError(t, res.Err)
}

func TestRun_ReportsEveryMismatch(t *testing.T) {
	res := Run(Case{
		Name:    "mismatch",
		Formula: "y ~ 0 + C(A, Gamma())",
		Expect: Expect{
			Terms:     []string{"B"},
			Intercept: boolPtr(true),
			IRFs:      intPtr(3),
		},
	})

	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "terms: expected [B], got [A]", res.Errors[0])
	assert.Equal(t, "intercept: expected true, got false", res.Errors[1])
	assert.Equal(t, "irfs: expected 3, got 1", res.Errors[2])
}

func TestRun_ExpectedError(t *testing.T) {
	res := Run(Case{
		Name:    "bad_family",
		Formula: "y ~ C(A, Foo())",
		Expect:  Expect{Error: "unknown_family"},
	})
	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Nil(t, res.Spec)
	assert.Error(t, res.Err)
}

func TestRun_WrongErrorKind(t *testing.T) {
	res := Run(Case{
		Name:    "wrong_kind",
		Formula: "y ~ C(A, Foo())",
		Expect:  Expect{Error: "syntax"},
	})
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "expected syntax error, got unknown_family")
}

func TestRun_ErrorExpectedButCompiled(t *testing.T) {
	res := Run(Case{
		Name:    "compiles",
		Formula: "y ~ C(A, Gamma())",
		Expect:  Expect{Error: "syntax"},
	})
	assert.False(t, res.Pass)
	assert.Equal(t, []string{"expected syntax error, compilation succeeded"}, res.Errors)
}

func TestRun_UnexpectedError(t *testing.T) {
	res := Run(Case{
		Name:    "unexpected",
		Formula: "y ~ C(A, Foo())",
		Expect:  Expect{IRFs: intPtr(1)},
	})
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unexpected error")
}

func TestRun_RandomBlocks(t *testing.T) {
	res := Run(Case{
		Name:    "random",
		Formula: "y ~ C(A, Gamma()) + (C(A, Gamma()) + C(B, Gamma()) | subject)",
		Expect: Expect{
			Groups: []string{"subject"},
			Random: []RandomExpect{{
				Group:     "subject",
				Intercept: boolPtr(true),
				Terms:     []string{"A", "B"},
				Ties:      []int{0, -1},
			}},
		},
	})
	assert.True(t, res.Pass, "errors: %v", res.Errors)
}

func TestRun_RandomBlockCountMismatch(t *testing.T) {
	res := Run(Case{
		Name:    "random_count",
		Formula: "y ~ C(A, Gamma())",
		Expect:  Expect{Random: []RandomExpect{{Group: "subject"}}},
	})
	assert.False(t, res.Pass)
	assert.Equal(t, []string{"random: expected 1 blocks, got 0"}, res.Errors)
}

func TestHarness_WithCompiler(t *testing.T) {
	boom := errors.New("boom")
	h := New(WithCompiler(func(string) (*ir.ModelSpec, error) { return nil, boom }))

	res := h.Run(Case{Name: "stub", Formula: "y ~ x", Expect: Expect{Error: "internal"}})
	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.ErrorIs(t, res.Err, boom)
}

func TestHarness_NilSpecIsAnError(t *testing.T) {
	h := New(WithCompiler(func(string) (*ir.ModelSpec, error) { return nil, nil }))

	res := h.Run(Case{Name: "nil", Formula: "y ~ x"})
	assert.False(t, res.Pass)
	assert.Error(t, res.Err)
}

func TestHarness_RunSuiteLogs(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	results := h.RunSuite(&Suite{
		Name: "logged",
		Cases: []Case{
			{Name: "ok", Formula: "y ~ C(A, Gamma())", Expect: Expect{IRFs: intPtr(1)}},
			{Name: "bad", Formula: "y ~ C(A, Gamma())", Expect: Expect{IRFs: intPtr(2)}},
		},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Pass)
	assert.False(t, results[1].Pass)
	assert.Contains(t, buf.String(), "suite=logged")
	assert.Contains(t, buf.String(), "failed=1")
}

// TestConformanceSuites runs every case under testdata/suites.
func TestConformanceSuites(t *testing.T) {
	suites, err := LoadSuites("testdata/suites")
	require.NoError(t, err)
	require.NotEmpty(t, suites)

	h := New()
	for _, s := range suites {
		t.Run(s.Name, func(t *testing.T) {
			for _, res := range h.RunSuite(s) {
				assert.True(t, res.Pass, "%s: %v", res.Case.Name, res.Errors)
			}
		})
	}
}
