package compiler

import (
	"sort"

	"github.com/roach88/cdrc/internal/ir"
)

// Family is the parameter schema of one IRF family.
type Family struct {
	Name   string
	Params []string
	Shift  string // name of the strictly negative shift parameter, if any
	Shape  string // shape constraint tag checked by the fitting engine
}

// families is the closed set of IRF families the grammar accepts.
var families = map[string]Family{
	"DiracDelta":       {Name: "DiracDelta"},
	"Exp":              {Name: "Exp", Params: []string{"beta"}},
	"Gamma":            {Name: "Gamma", Params: []string{"alpha", "beta"}},
	"GammaKgt1":        {Name: "GammaKgt1", Params: []string{"alpha", "beta"}, Shape: ir.ShapeKgt1},
	"ShiftedGamma":     {Name: "ShiftedGamma", Params: []string{"alpha", "beta", "delta"}, Shift: "delta"},
	"ShiftedGammaKgt1": {Name: "ShiftedGammaKgt1", Params: []string{"alpha", "beta", "delta"}, Shift: "delta", Shape: ir.ShapeKgt1},
	"Normal":           {Name: "Normal", Params: []string{"mu", "sigma2"}},
	"SkewNormal":       {Name: "SkewNormal", Params: []string{"mu", "sigma", "alpha"}},
	"EMG":              {Name: "EMG", Params: []string{"mu", "sigma", "beta"}},
	"BetaPrime":        {Name: "BetaPrime", Params: []string{"alpha", "beta"}},
	"ShiftedBetaPrime": {Name: "ShiftedBetaPrime", Params: []string{"alpha", "beta", "delta"}, Shift: "delta"},
}

// LookupFamily returns the schema for a family name.
func LookupFamily(name string) (Family, bool) {
	f, ok := families[name]
	return f, ok
}

// FamilyNames returns every supported family, sorted.
func FamilyNames() []string {
	names := make([]string, 0, len(families))
	for n := range families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f Family) hasParam(name string) bool {
	for _, p := range f.Params {
		if p == name {
			return true
		}
	}
	return false
}

// spec builds the IRF definition with the given literal initial values.
func (f Family) spec(id string, inits map[string]string) ir.IRFSpec {
	params := make([]ir.IRFParam, len(f.Params))
	for i, name := range f.Params {
		params[i] = ir.IRFParam{Name: name, Init: inits[name]}
		if name == f.Shift {
			params[i].Constraint = ir.ConstraintNegative
		}
	}
	return ir.IRFSpec{ID: id, Family: f.Name, Params: params, Shape: f.Shape}
}
