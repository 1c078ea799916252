package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

// checkExpect compares a compilation outcome with its expectations and
// records every mismatch on r.
func checkExpect(r *Result, exp Expect) {
	if exp.Error != "" {
		if r.Err == nil {
			r.AddError(fmt.Sprintf("expected %s error, compilation succeeded", exp.Error))
			return
		}
		if got := compiler.KindName(r.Err); got != exp.Error {
			r.AddError(fmt.Sprintf("expected %s error, got %s: %v", exp.Error, got, r.Err))
		}
		return
	}
	if r.Err != nil {
		r.AddError(fmt.Sprintf("unexpected error: %v", r.Err))
		return
	}

	spec := r.Spec
	if exp.Terms != nil {
		assertSlice(r, "terms", exp.Terms, termNames(spec.Terms))
	}
	if exp.Intercept != nil {
		assertEqual(r, "intercept", *exp.Intercept, spec.Intercept)
	}
	if exp.IRFs != nil {
		assertEqual(r, "irfs", *exp.IRFs, len(spec.IRFs))
	}
	if exp.Coefs != nil {
		assertEqual(r, "coefs", *exp.Coefs, len(spec.Coefs))
	}
	if exp.Groups != nil {
		assertSlice(r, "groups", exp.Groups, spec.RandomGroupings())
	}
	if exp.Random != nil {
		checkRandom(r, exp.Random, spec.Random)
	}
}

func checkRandom(r *Result, want []RandomExpect, got []ir.RandomEffectBlock) {
	if len(want) != len(got) {
		r.AddError(fmt.Sprintf("random: expected %d blocks, got %d", len(want), len(got)))
		return
	}
	for i, w := range want {
		g := got[i]
		field := fmt.Sprintf("random[%d]", i)
		assertEqual(r, field+".group", w.Group, g.Group)
		if w.Intercept != nil {
			assertEqual(r, field+".intercept", *w.Intercept, g.Intercept)
		}
		if w.Terms != nil {
			assertSlice(r, field+".terms", w.Terms, termNames(g.Terms))
		}
		if w.Ties != nil {
			assertSlice(r, field+".ties", w.Ties, g.Ties)
		}
	}
}

func assertEqual[T comparable](r *Result, field string, want, got T) {
	if want != got {
		r.AddError(fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}
}

func assertSlice[T comparable](r *Result, field string, want, got []T) {
	if !slices.Equal(want, got) {
		r.AddError(fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}
}

func termNames(terms []ir.Term) []string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name()
	}
	return names
}
