package ir

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelSpecRoundTrip(t *testing.T) {
	spec := sampleSpec()

	data, err := MarshalCanonical(spec)
	require.NoError(t, err)

	decoded, err := UnmarshalModelSpec(data)
	require.NoError(t, err)
	assert.Equal(t, spec, decoded)

	again, err := MarshalCanonical(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "canonical bytes must be stable across a round trip")
}

func TestModelSpecRoundTripPreservesOrder(t *testing.T) {
	spec := sampleSpec()
	spec.Terms = append(spec.Terms, Term{Vars: []VariableRef{{Name: "B"}, {Name: "A"}}, IRF: "N", Coef: "coef#3"})
	spec.Coefs["coef#3"] = CoefSpec{ID: "coef#3"}

	data, err := MarshalCanonical(spec)
	require.NoError(t, err)
	decoded, err := UnmarshalModelSpec(data)
	require.NoError(t, err)

	require.Len(t, decoded.Terms, 3)
	assert.Equal(t, "A", decoded.Terms[0].Name())
	assert.Equal(t, "A:z(B)", decoded.Terms[1].Name())
	assert.Equal(t, "B:A", decoded.Terms[2].Name())
}

func TestModelSpecDecodesIndentedJSON(t *testing.T) {
	spec := sampleSpec()

	data, err := json.MarshalIndent(spec, "", "  ")
	require.NoError(t, err)

	decoded, err := UnmarshalModelSpec(data)
	require.NoError(t, err)
	assert.Equal(t, spec, decoded)
}

func TestUnmarshalModelSpecErrors(t *testing.T) {
	data, err := MarshalCanonical(sampleSpec())
	require.NoError(t, err)

	t.Run("unknown field", func(t *testing.T) {
		bad := strings.Replace(string(data), `"formula":`, `"extra":1,"formula":`, 1)
		_, err := UnmarshalModelSpec([]byte(bad))
		require.Error(t, err)
	})

	t.Run("wrong version", func(t *testing.T) {
		bad := strings.Replace(string(data), `"ir_version":"1"`, `"ir_version":"99"`, 1)
		_, err := UnmarshalModelSpec([]byte(bad))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ir_version")
	})

	t.Run("ties mismatch", func(t *testing.T) {
		bad := strings.Replace(string(data), `"ties":[0]`, `"ties":[]`, 1)
		_, err := UnmarshalModelSpec([]byte(bad))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ties")
	})

	t.Run("not json", func(t *testing.T) {
		_, err := UnmarshalModelSpec([]byte("y ~ A"))
		require.Error(t, err)
	})
}

func TestModelSpecCanonicalOmitsEmpty(t *testing.T) {
	spec := &ModelSpec{
		Formula:   "y ~ 1",
		Response:  VariableRef{Name: "y"},
		Intercept: true,
		Terms:     []Term{},
		Random:    []RandomEffectBlock{},
		IRFs:      map[string]IRFSpec{},
		Coefs:     map[string]CoefSpec{},
		IRVersion: IRVersion,
	}

	data, err := MarshalCanonical(spec)
	require.NoError(t, err)
	assert.Equal(t,
		`{"coefs":{},"formula":"y ~ 1","intercept":true,"ir_version":"1","irfs":{},"random":[],"response":{"name":"y"},"terms":[]}`,
		string(data))
}
