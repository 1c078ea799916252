package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdrc/internal/ir"
)

func TestExpandText(t *testing.T) {
	output, err := execute(t, "expand", "y ~ C((A + B)**2, Gamma()) + (C(A, Gamma()) | subject)")
	require.NoError(t, err)

	assert.Contains(t, output, "response:  y")
	assert.Contains(t, output, "fixed (3 terms):")
	assert.Contains(t, output, "A:B")
	assert.Contains(t, output, "random(subject) intercept=yes (1 terms):")
	assert.Contains(t, output, "tied to fixed[0]")
	assert.Contains(t, output, "hash: ")
}

func TestExpandTokens(t *testing.T) {
	output, err := execute(t, "expand", "--tokens", "y ~ C(A, Gamma())")
	require.NoError(t, err)
	assert.Contains(t, output, "tokens:")
	assert.Contains(t, output, "Gamma")
}

func TestExpandJSON(t *testing.T) {
	output, err := execute(t, "--format", "json", "expand", "--tokens", "y ~ C(A + B, Normal())")
	require.NoError(t, err)

	var result ExpandResult
	resp := decodeResponse(t, output, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"A", "B"}, result.Terms)
	require.NotEmpty(t, result.Tokens)
	assert.Equal(t, TokenInfo{Kind: "'~'", Text: "~", Start: 2, End: 3}, result.Tokens[1])

	spec, err := ir.UnmarshalModelSpec(result.Spec)
	require.NoError(t, err)
	assert.Equal(t, result.Hash, ir.MustSpecHash(spec))
}

func TestExpandError(t *testing.T) {
	output, err := execute(t, "expand", "y ~ C(A, Foo())")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "Error [E203]")
	assert.Contains(t, output, "y ~ C(A, Foo())\n         ^^^")
}

func TestExpandErrorJSON(t *testing.T) {
	output, err := execute(t, "--format", "json", "expand", "y ~ 0 + 1 + C(A, Gamma())")
	require.Error(t, err)

	var raw struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, jsonUnmarshal(output, &raw))
	assert.Equal(t, ErrCodeInterceptAmbiguity, raw.Error.Code)
	assert.Equal(t, "intercept_ambiguity", raw.Error.Details["kind"])
	assert.Equal(t, "fixed", raw.Error.Details["block"])
	assert.Equal(t, []any{float64(8), float64(9)}, raw.Error.Details["span"])
}
