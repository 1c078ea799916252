package compiler

import (
	"github.com/roach88/cdrc/internal/ir"
)

// Compile compiles one formula into a ModelSpec.
//
// Compilation is pure and synchronous: every call owns its id counters
// and registries, so compiling the same text twice yields equal specs and
// independent formulas may be compiled in parallel. A formula either
// compiles completely or returns a *Error.
//
//	spec, err := compiler.Compile("y ~ C(A + B, Gamma()) + (C(A, Gamma()) | subject)")
func Compile(formula string) (*ir.ModelSpec, error) {
	f, err := Parse(formula)
	if err != nil {
		return nil, err
	}
	ex, err := Expand(f)
	if err != nil {
		return nil, err
	}
	return Build(ex)
}

// Build resolves intercepts and tying for an expanded formula and
// assembles the ModelSpec.
func Build(ex *Expanded) (*ir.ModelSpec, error) {
	r := newResolver()

	intercept, err := resolveIntercept(ex.Fixed)
	if err != nil {
		return nil, err
	}
	terms, err := r.resolveFixed(ex.Fixed.Terms)
	if err != nil {
		return nil, inBlock(err, ex.Fixed.Name())
	}
	random := make([]ir.RandomEffectBlock, 0, len(ex.Blocks))
	for _, scope := range ex.Blocks {
		block, err := r.resolveBlock(scope, terms)
		if err != nil {
			return nil, inBlock(err, scope.Name())
		}
		random = append(random, block)
	}

	spec := &ir.ModelSpec{
		Formula:   ex.Source,
		Response:  ex.Response,
		Intercept: intercept,
		Terms:     terms,
		Random:    random,
		IRFs:      r.irfs,
		Coefs:     r.coefs,
		IRVersion: ir.IRVersion,
	}
	if err := verify(spec); err != nil {
		return nil, err
	}
	return spec, nil
}
