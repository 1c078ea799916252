package compiler

import (
	"strconv"

	"github.com/roach88/cdrc/internal/ir"
)

// Expanded is a formula after term expansion: every convolution carries a
// single interaction and its own copy of the IRF call. Nothing is tied yet.
type Expanded struct {
	Source   string
	Response ir.VariableRef
	Fixed    Scope
	Blocks   []Scope
}

// Scope is the fixed part of a formula or one random-effect block.
type Scope struct {
	Group      string // empty for the fixed scope
	GroupSpan  Span
	Intercepts []InterceptLit
	Terms      []ExpandedTerm
	Span       Span
}

// Name identifies the scope in diagnostics.
func (s Scope) Name() string {
	if s.Group == "" {
		return "fixed"
	}
	return "random(" + s.Group + ")"
}

// ExpandedTerm is one convolution over one interaction. Span is the
// originating C(...) call.
type ExpandedTerm struct {
	Vars []ir.VariableRef
	IRF  IRFCall
	Span Span
}

// Expand distributes every convolution over the additive parts of its
// predictor argument and expands power notation. Terms are never merged:
// C(A, Gamma()) + C(A, Gamma()) expands to two terms.
func Expand(f *Formula) (*Expanded, error) {
	out := &Expanded{
		Source:   f.Source,
		Response: varRef(f.Response),
		Fixed:    Scope{Span: f.Span},
	}
	for _, term := range f.RHS {
		switch t := term.(type) {
		case *RandomBlock:
			scope := Scope{Group: t.Group, GroupSpan: t.GroupSpan, Span: t.Span}
			for _, inner := range t.Terms {
				if err := expandInto(&scope, inner); err != nil {
					return nil, inBlock(err, scope.Name())
				}
			}
			out.Blocks = append(out.Blocks, scope)
		default:
			if err := expandInto(&out.Fixed, term); err != nil {
				return nil, inBlock(err, out.Fixed.Name())
			}
		}
	}
	return out, nil
}

func expandInto(scope *Scope, term RHSTerm) error {
	switch t := term.(type) {
	case *InterceptLit:
		scope.Intercepts = append(scope.Intercepts, *t)
	case *ConvCall:
		interactions, err := expandTerms(t.Expr)
		if err != nil {
			return err
		}
		for _, vars := range interactions {
			scope.Terms = append(scope.Terms, ExpandedTerm{Vars: vars, IRF: t.IRF, Span: t.Span})
		}
	case *RandomBlock:
		return newError(ErrSyntax, "random_block", t.Span, "random-effect blocks cannot be nested")
	}
	return nil
}

// expandTerms flattens a predictor expression into its interactions in
// source order.
func expandTerms(e TermExpr) ([][]ir.VariableRef, error) {
	switch t := e.(type) {
	case *Interaction:
		vars := make([]ir.VariableRef, len(t.Vars))
		for i, v := range t.Vars {
			vars[i] = varRef(v)
		}
		return [][]ir.VariableRef{vars}, nil
	case *Sum:
		var out [][]ir.VariableRef
		for _, item := range t.Items {
			sub, err := expandTerms(item)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case *Power:
		base, err := expandTerms(t.Base)
		if err != nil {
			return nil, err
		}
		k, err := powerExponent(t, len(base))
		if err != nil {
			return nil, err
		}
		return expandPower(base, k), nil
	}
	return nil, newError(ErrSyntax, "term_expr", e.Pos(), "unexpected predictor expression")
}

// expandPower returns every combination of 1..k base terms. Within an
// order, combinations follow ascending index tuples of the base listing,
// so (A + B + C)**2 gives A, B, C, A:B, A:C, B:C.
func expandPower(base [][]ir.VariableRef, k int) [][]ir.VariableRef {
	var out [][]ir.VariableRef
	for order := 1; order <= k; order++ {
		combinations(len(base), order, func(idx []int) {
			var vars []ir.VariableRef
			for _, i := range idx {
				vars = append(vars, base[i]...)
			}
			out = append(out, vars)
		})
	}
	return out
}

// combinations calls fn with each size-k subset of 0..n-1 in lexicographic order.
func combinations(n, k int, fn func([]int)) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func powerExponent(p *Power, n int) (int, error) {
	k, err := strconv.Atoi(p.Exponent)
	if err != nil {
		return 0, newError(ErrInvalidPowerExponent, "power_expr", p.ExpSpan, "power exponent must be a positive integer, found %s", p.Exponent)
	}
	if k < 1 {
		return 0, newError(ErrInvalidPowerExponent, "power_expr", p.ExpSpan, "power exponent must be positive, found %d", k)
	}
	if k > n {
		return 0, newError(ErrInvalidPowerExponent, "power_expr", p.Span, "power exponent %d exceeds the %d base terms", k, n)
	}
	return k, nil
}

func varRef(v VarExpr) ir.VariableRef {
	ref := ir.VariableRef{Name: v.Name}
	if len(v.Transforms) > 0 {
		ref.Transforms = append([]string(nil), v.Transforms...)
	}
	return ref
}
