package compiler

import (
	"github.com/roach88/cdrc/internal/ir"
)

// resolveIntercept applies the intercept rule of one scope: no literal
// means present, 0 means absent, and both 0 and 1 is an error.
func resolveIntercept(scope Scope) (bool, error) {
	var zero, one *InterceptLit
	for i := range scope.Intercepts {
		lit := &scope.Intercepts[i]
		switch {
		case lit.Present && one == nil:
			one = lit
		case !lit.Present && zero == nil:
			zero = lit
		}
	}
	if zero != nil && one != nil {
		later := one
		if zero.Span.Start > one.Span.Start {
			later = zero
		}
		return false, &Error{
			Kind:       ErrInterceptAmbiguity,
			Production: "rhs",
			Block:      scope.Name(),
			Span:       later.Span,
			Message:    "both 0 and 1 appear; keep one to decide whether the intercept is estimated",
		}
	}
	return zero == nil, nil
}

// counterpart returns the index of the first fixed term convolving the
// same ordered interaction, or -1.
func counterpart(fixed []ir.Term, vars []ir.VariableRef) int {
	probe := ir.Term{Vars: vars}
	for i, t := range fixed {
		if t.SameSignature(probe) {
			return i
		}
	}
	return -1
}

// resolveBlock compiles one (terms | group) block against the already
// resolved fixed terms.
//
// A random term shares the IRF and coefficient of its fixed counterpart
// unless it names its own ids. With ran=T it gets its own IRF, tagged for
// per-level shape estimation and linked to the fixed IRF through Base;
// the fixed IRF is left untouched. The grouping factor's levels are not
// known here, and whether the factor is constant over each convolved
// history is for the fitting engine to check.
func (r *resolver) resolveBlock(scope Scope, fixed []ir.Term) (ir.RandomEffectBlock, error) {
	intercept, err := resolveIntercept(scope)
	if err != nil {
		return ir.RandomEffectBlock{}, err
	}
	block := ir.RandomEffectBlock{
		Group:     scope.Group,
		Intercept: intercept,
		Terms:     make([]ir.Term, 0, len(scope.Terms)),
		Ties:      make([]int, 0, len(scope.Terms)),
	}

	for _, t := range scope.Terms {
		d, err := declare(t.IRF)
		if err != nil {
			return ir.RandomEffectBlock{}, err
		}
		tie := counterpart(fixed, t.Vars)
		term := ir.Term{Vars: t.Vars, Ran: d.ran}

		implicit := false
		switch {
		case d.irfID != "":
			term.IRF = d.irfID
		case d.ran || tie < 0:
			term.IRF = r.freshIRF()
		default:
			term.IRF = fixed[tie].IRF
			implicit = true
		}
		err = r.bindIRF(term.IRF, d, func(s *ir.IRFSpec) {
			if !d.ran {
				return
			}
			s.Ran = true
			s.Group = scope.Group
			if tie >= 0 && fixed[tie].IRF != s.ID {
				s.Base = fixed[tie].IRF
			}
		})
		if err != nil {
			if ce, ok := err.(*Error); ok && implicit {
				ce.Message += "; the random term is tied to its fixed counterpart, give it an irf_id or ran=T to estimate a separate IRF"
			}
			return ir.RandomEffectBlock{}, err
		}

		switch {
		case d.coefID != "":
			term.Coef = d.coefID
		case tie >= 0:
			term.Coef = fixed[tie].Coef
		default:
			term.Coef = r.freshCoef()
		}
		r.bindCoef(term.Coef, scope.Group)

		block.Terms = append(block.Terms, term)
		block.Ties = append(block.Ties, tie)
	}
	return block, nil
}
