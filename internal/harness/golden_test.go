package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden files live in testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
func TestRunWithGolden(t *testing.T) {
	cases := []Case{
		{Name: "single_gamma", Formula: "y ~ C(A, Gamma())"},
		{Name: "implicit_tie", Formula: "y ~ C(A, Gamma()) + (C(A, Gamma()) | subject)"},
		{Name: "unknown_family", Formula: "y ~ C(A, Foo())", Expect: Expect{Error: "unknown_family"}},
		{Name: "intercept_ambiguity", Formula: "y ~ 0 + 1 + C(A, Gamma())", Expect: Expect{Error: "intercept_ambiguity"}},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			res, err := RunWithGolden(t, c)
			require.NoError(t, err)
			assert.True(t, res.Pass, "errors: %v", res.Errors)
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	c := Case{Name: "det", Formula: "log(y) ~ C((A + B)**2, ShiftedGamma(delta=-0.5)) + (C(A, Gamma(ran=T)) | s)"}

	first, err := Snapshot(Run(c))
	require.NoError(t, err)
	for range 10 {
		again, err := Snapshot(Run(c))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestSnapshot_NonCompileError(t *testing.T) {
	res := NewResult(Case{Name: "plain"})
	res.Err = errors.New("disk on fire")

	data, err := Snapshot(res)
	require.NoError(t, err)
	assert.Equal(t, `{"case":"plain","error":{"kind":"internal","message":"disk on fire"}}`, string(data))
}
