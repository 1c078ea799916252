package ir

import "strings"

// ModelSpec is a compiled formula.
//
// Terms and Random keep source order. IRFs and Coefs are the canonical
// registries every term references by id.
type ModelSpec struct {
	Formula   string              `json:"formula"`
	Response  VariableRef         `json:"response"`
	Intercept bool                `json:"intercept"`
	Terms     []Term              `json:"terms"`
	Random    []RandomEffectBlock `json:"random"`
	IRFs      map[string]IRFSpec  `json:"irfs"`
	Coefs     map[string]CoefSpec `json:"coefs"`
	IRVersion string              `json:"ir_version"`
}

// VariableRef names a data column plus the transforms applied to it,
// outermost first: z(log(x)) is {Name: "x", Transforms: ["z", "log"]}.
type VariableRef struct {
	Name       string   `json:"name"`
	Transforms []string `json:"transforms,omitempty"`
}

// String renders the reference in formula syntax.
func (v VariableRef) String() string {
	var b strings.Builder
	for _, t := range v.Transforms {
		b.WriteString(t)
		b.WriteByte('(')
	}
	b.WriteString(v.Name)
	for range v.Transforms {
		b.WriteByte(')')
	}
	return b.String()
}

// Equal reports whether two references name the same column under the
// same transform chain.
func (v VariableRef) Equal(o VariableRef) bool {
	if v.Name != o.Name || len(v.Transforms) != len(o.Transforms) {
		return false
	}
	for i := range v.Transforms {
		if v.Transforms[i] != o.Transforms[i] {
			return false
		}
	}
	return true
}

// Term is a convolutional term: an interaction of one or more predictors
// convolved with the IRF named by IRF and scaled by the coefficient named by Coef.
type Term struct {
	Vars []VariableRef `json:"vars"`
	IRF  string        `json:"irf_id"`
	Coef string        `json:"coef_id"`
	Ran  bool          `json:"ran,omitempty"` // per-level IRF shape re-estimation
}

// Order returns the interaction order of the term.
func (t Term) Order() int {
	return len(t.Vars)
}

// Name renders the interaction in formula syntax, e.g. "A:log(B)".
func (t Term) Name() string {
	parts := make([]string, len(t.Vars))
	for i, v := range t.Vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ":")
}

// SameSignature reports whether two terms convolve the same ordered interaction.
func (t Term) SameSignature(o Term) bool {
	if len(t.Vars) != len(o.Vars) {
		return false
	}
	for i := range t.Vars {
		if !t.Vars[i].Equal(o.Vars[i]) {
			return false
		}
	}
	return true
}

// RandomEffectBlock is one (terms | group) block.
// Ties is parallel to Terms: the index of the fixed term each random term
// is tied to, or -1 when it has no fixed counterpart.
type RandomEffectBlock struct {
	Group     string `json:"group"`
	Intercept bool   `json:"intercept"`
	Terms     []Term `json:"terms"`
	Ties      []int  `json:"ties"`
}

// IRFSpec is the canonical definition of one impulse response function.
type IRFSpec struct {
	ID     string     `json:"id"`
	Family string     `json:"family"`
	Params []IRFParam `json:"params"`
	Ran    bool       `json:"ran,omitempty"`
	Group  string     `json:"group,omitempty"` // grouping factor for Ran
	Base   string     `json:"base,omitempty"`  // fixed IRF re-estimated per level
	Shape  string     `json:"shape,omitempty"` // shape constraint tag, e.g. "kgt1"
}

// Declared returns the names of parameters given an initial value in the formula.
func (s IRFSpec) Declared() []string {
	var names []string
	for _, p := range s.Params {
		if p.Init != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// IRFParam is one family parameter. Init is the literal initial value as
// written in the formula, empty when the fitting engine picks the default.
type IRFParam struct {
	Name       string `json:"name"`
	Init       string `json:"init,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

// Parameter constraint tags.
const (
	ConstraintNegative = "negative"
	ShapeKgt1          = "kgt1"
)

// CoefSpec is the canonical amplitude-only coefficient definition.
// Groups lists the grouping factors with per-level coefficient estimates.
type CoefSpec struct {
	ID     string   `json:"id"`
	Groups []string `json:"groups,omitempty"`
}

// RandomGroupings returns the grouping factors in first-seen order.
func (m *ModelSpec) RandomGroupings() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, b := range m.Random {
		if !seen[b.Group] {
			seen[b.Group] = true
			groups = append(groups, b.Group)
		}
	}
	return groups
}

// Variables returns every distinct predictor column referenced by the fixed
// and random terms, in first-seen order. The response is not included.
func (m *ModelSpec) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(terms []Term) {
		for _, t := range terms {
			for _, v := range t.Vars {
				if !seen[v.Name] {
					seen[v.Name] = true
					names = append(names, v.Name)
				}
			}
		}
	}
	add(m.Terms)
	for _, b := range m.Random {
		add(b.Terms)
	}
	return names
}
