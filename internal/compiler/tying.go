package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/cdrc/internal/ir"
)

// irfDecl is what one IRF call declares once its keyword arguments are checked.
type irfDecl struct {
	family Family
	irfID  string // explicit irf_id, empty when absent
	coefID string // explicit coef_id, empty when absent
	ran    bool
	inits  map[string]string
	span   Span
}

// declare validates the keyword arguments of an IRF call against its
// family schema. Literal shifts are checked here; omitted shifts are left
// to the fitting engine.
func declare(call IRFCall) (irfDecl, error) {
	fam, ok := LookupFamily(call.Family)
	if !ok {
		return irfDecl{}, newError(ErrUnknownFamily, "irf_call", call.Span, "unknown IRF family %q", call.Family)
	}
	d := irfDecl{family: fam, inits: make(map[string]string), span: call.Span}
	seen := make(map[string]bool)
	for _, kw := range call.Args {
		if seen[kw.Key] {
			return irfDecl{}, newError(ErrSyntax, "kwarg", kw.Span, "duplicate keyword argument %s", kw.Key)
		}
		seen[kw.Key] = true

		var err error
		switch kw.Key {
		case "irf_id":
			d.irfID, err = idValue(kw)
		case "coef_id":
			d.coefID, err = idValue(kw)
		case "ran":
			d.ran, err = boolValue(kw)
		default:
			err = d.param(kw)
		}
		if err != nil {
			return irfDecl{}, err
		}
	}
	return d, nil
}

func (d *irfDecl) param(kw KwArg) error {
	fam := d.family
	if !fam.hasParam(kw.Key) {
		if len(fam.Params) == 0 {
			return newError(ErrSyntax, "kwarg", kw.Span, "%s takes no parameters, found %s", fam.Name, kw.Key)
		}
		return newError(ErrSyntax, "kwarg", kw.Span, "%s has no parameter %q (parameters: %s)",
			fam.Name, kw.Key, strings.Join(fam.Params, ", "))
	}
	if kw.Value.Kind != ValueNumber {
		return newError(ErrSyntax, "kwarg", kw.Span, "initial value of %s must be a number, found %s", kw.Key, kw.Value.Text)
	}
	x, err := strconv.ParseFloat(kw.Value.Text, 64)
	if err != nil {
		return newError(ErrSyntax, "kwarg", kw.Value.Span, "malformed number %s", kw.Value.Text)
	}
	if kw.Key == fam.Shift && !(x < 0) {
		return newError(ErrInvalidShift, "kwarg", kw.Span, "shift %s of %s must be strictly negative, found %s",
			kw.Key, fam.Name, kw.Value.Text)
	}
	d.inits[kw.Key] = kw.Value.Text
	return nil
}

func idValue(kw KwArg) (string, error) {
	if kw.Value.Kind != ValueIdent {
		return "", newError(ErrSyntax, "kwarg", kw.Span, "%s must be a name, found %s", kw.Key, kw.Value.Text)
	}
	return kw.Value.Text, nil
}

func boolValue(kw KwArg) (bool, error) {
	if kw.Value.Kind == ValueIdent {
		switch kw.Value.Text {
		case "T", "TRUE", "True", "true":
			return true, nil
		case "F", "FALSE", "False", "false":
			return false, nil
		}
	}
	return false, newError(ErrSyntax, "kwarg", kw.Span, "%s must be T or F, found %s", kw.Key, kw.Value.Text)
}

// resolver assigns IRF and coefficient ids and owns the canonical
// registries for one compilation. It is never shared between compilations.
type resolver struct {
	irfs    map[string]ir.IRFSpec
	irfSeen map[string]Span
	coefs   map[string]ir.CoefSpec
	nIRF    int
	nCoef   int
}

func newResolver() *resolver {
	return &resolver{
		irfs:    make(map[string]ir.IRFSpec),
		irfSeen: make(map[string]Span),
		coefs:   make(map[string]ir.CoefSpec),
	}
}

// Synthesized ids contain '#', which the tokenizer rejects, so they cannot
// collide with explicit ids.
func (r *resolver) freshIRF() string {
	r.nIRF++
	return "irf#" + strconv.Itoa(r.nIRF)
}

func (r *resolver) freshCoef() string {
	r.nCoef++
	return "coef#" + strconv.Itoa(r.nCoef)
}

// bindIRF registers id on first use. Later uses must match the first
// declaration's family, declared parameter names and per-level scope;
// the first declaration's initial values win.
func (r *resolver) bindIRF(id string, d irfDecl, tag func(*ir.IRFSpec)) error {
	spec := d.family.spec(id, d.inits)
	if tag != nil {
		tag(&spec)
	}
	first, ok := r.irfs[id]
	if !ok {
		r.irfs[id] = spec
		r.irfSeen[id] = d.span
		return nil
	}
	at := r.irfSeen[id]
	if first.Family != spec.Family {
		return newError(ErrTyingConflict, "irf_call", d.span, "irf_id %s is %s here but %s at %d:%d",
			id, spec.Family, first.Family, at.Start, at.End)
	}
	if !slices.Equal(first.Declared(), spec.Declared()) {
		return newError(ErrTyingConflict, "irf_call", d.span, "irf_id %s declares parameters [%s] here but [%s] at %d:%d",
			id, strings.Join(spec.Declared(), ", "), strings.Join(first.Declared(), ", "), at.Start, at.End)
	}
	if first.Ran != spec.Ran || first.Group != spec.Group {
		return newError(ErrTyingConflict, "irf_call", d.span, "irf_id %s is %s here but %s at %d:%d; give the random member its own irf_id",
			id, levelScope(spec), levelScope(first), at.Start, at.End)
	}
	return nil
}

func levelScope(s ir.IRFSpec) string {
	if s.Ran {
		return "re-estimated per level of " + s.Group
	}
	return "shared across levels"
}

// bindCoef registers a coefficient and records the grouping factor, if any,
// whose levels get their own estimate of it.
func (r *resolver) bindCoef(id, group string) {
	c, ok := r.coefs[id]
	if !ok {
		c = ir.CoefSpec{ID: id}
	}
	if group != "" && !slices.Contains(c.Groups, group) {
		c.Groups = append(slices.Clone(c.Groups), group)
	}
	r.coefs[id] = c
}

// resolveFixed ties the fixed-effect terms in one linear pass.
func (r *resolver) resolveFixed(terms []ExpandedTerm) ([]ir.Term, error) {
	out := make([]ir.Term, 0, len(terms))
	for _, t := range terms {
		d, err := declare(t.IRF)
		if err != nil {
			return nil, err
		}
		if d.ran {
			return nil, newError(ErrSyntax, "irf_call", t.IRF.Span, "ran=T is only valid inside a random-effect block")
		}

		term := ir.Term{Vars: t.Vars, IRF: d.irfID, Coef: d.coefID}
		if term.IRF == "" {
			term.IRF = r.freshIRF()
		}
		if err := r.bindIRF(term.IRF, d, nil); err != nil {
			return nil, err
		}
		if term.Coef == "" {
			term.Coef = r.freshCoef()
		}
		r.bindCoef(term.Coef, "")
		out = append(out, term)
	}
	return out, nil
}

// verify re-checks that every id referenced anywhere resolves to exactly
// one registry entry and that nothing in the registries is unreferenced.
func verify(spec *ir.ModelSpec) error {
	usedIRF := make(map[string]bool)
	usedCoef := make(map[string]bool)
	check := func(where string, t ir.Term) error {
		if _, ok := spec.IRFs[t.IRF]; !ok {
			return fmt.Errorf("%s %s: irf_id %q not in registry", where, t.Name(), t.IRF)
		}
		if _, ok := spec.Coefs[t.Coef]; !ok {
			return fmt.Errorf("%s %s: coef_id %q not in registry", where, t.Name(), t.Coef)
		}
		if t.Order() == 0 {
			return fmt.Errorf("%s: term without predictors", where)
		}
		usedIRF[t.IRF] = true
		usedCoef[t.Coef] = true
		return nil
	}

	for _, t := range spec.Terms {
		if err := check("fixed", t); err != nil {
			return fmt.Errorf("compiler invariant violated: %w", err)
		}
	}
	for _, b := range spec.Random {
		if len(b.Ties) != len(b.Terms) {
			return fmt.Errorf("compiler invariant violated: random(%s): %d ties for %d terms", b.Group, len(b.Ties), len(b.Terms))
		}
		for i, t := range b.Terms {
			if err := check("random("+b.Group+")", t); err != nil {
				return fmt.Errorf("compiler invariant violated: %w", err)
			}
			if tie := b.Ties[i]; tie >= 0 && (tie >= len(spec.Terms) || !spec.Terms[tie].SameSignature(t)) {
				return fmt.Errorf("compiler invariant violated: random(%s) %s: bad tie %d", b.Group, t.Name(), tie)
			}
		}
	}
	for id, s := range spec.IRFs {
		if s.ID != id || !usedIRF[id] {
			return fmt.Errorf("compiler invariant violated: irf registry entry %q", id)
		}
	}
	for id, c := range spec.Coefs {
		if c.ID != id || !usedCoef[id] {
			return fmt.Errorf("compiler invariant violated: coef registry entry %q", id)
		}
	}
	return nil
}
