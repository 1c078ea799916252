package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	spec := mustCompile(t, "log(y) ~ 0 + C(A + B, ShiftedGammaKgt1(alpha=2, irf_id=S)) + (C(A, ShiftedGammaKgt1(alpha=2, ran=T)) | subject)")
	out := Describe(spec)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "response:  log(y)", lines[0])
	assert.Equal(t, "intercept: no", lines[1])
	assert.Contains(t, out, "fixed (2 terms):")
	assert.Contains(t, out, "random(subject) intercept=yes (1 terms):")
	assert.Contains(t, out, "tied to fixed[0]")
	assert.Contains(t, out, "  S = ShiftedGammaKgt1(alpha=2, beta, delta<0) [kgt1]\n")
	assert.Contains(t, out, "  irf#1 = ShiftedGammaKgt1(alpha=2, beta, delta<0) [kgt1] ran by subject of S\n")
	assert.Contains(t, out, "  coef#1 by subject\n")
	assert.Contains(t, out, "  coef#2\n")
}
