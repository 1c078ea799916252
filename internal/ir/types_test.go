package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableRefString(t *testing.T) {
	assert.Equal(t, "x", VariableRef{Name: "x"}.String())
	assert.Equal(t, "z(log(x))", VariableRef{Name: "x", Transforms: []string{"z", "log"}}.String())
}

func TestVariableRefEqual(t *testing.T) {
	a := VariableRef{Name: "x", Transforms: []string{"log"}}
	assert.True(t, a.Equal(VariableRef{Name: "x", Transforms: []string{"log"}}))
	assert.False(t, a.Equal(VariableRef{Name: "x"}))
	assert.False(t, a.Equal(VariableRef{Name: "x", Transforms: []string{"exp"}}))
	assert.False(t, a.Equal(VariableRef{Name: "w", Transforms: []string{"log"}}))
}

func TestTermSignature(t *testing.T) {
	ab := Term{Vars: []VariableRef{{Name: "A"}, {Name: "B"}}}
	ba := Term{Vars: []VariableRef{{Name: "B"}, {Name: "A"}}}

	assert.Equal(t, 2, ab.Order())
	assert.Equal(t, "A:B", ab.Name())
	assert.True(t, ab.SameSignature(Term{Vars: []VariableRef{{Name: "A"}, {Name: "B"}}, IRF: "other"}))
	assert.False(t, ab.SameSignature(ba), "interaction order is significant")
}

func TestIRFSpecDeclared(t *testing.T) {
	s := sampleSpec().IRFs["irf#1"]
	assert.Equal(t, []string{"delta"}, s.Declared())
	assert.Nil(t, sampleSpec().IRFs["N"].Declared())
}

func TestModelSpecGroupingsAndVariables(t *testing.T) {
	spec := sampleSpec()
	spec.Random = append(spec.Random, RandomEffectBlock{Group: "item", Terms: []Term{}, Ties: []int{}},
		RandomEffectBlock{Group: "subject", Terms: []Term{{Vars: []VariableRef{{Name: "C"}}}}, Ties: []int{-1}})

	assert.Equal(t, []string{"subject", "item"}, spec.RandomGroupings())
	assert.Equal(t, []string{"A", "B", "C"}, spec.Variables())
}
