package compiler

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/roach88/cdrc/internal/ir"
)

// Describe renders a compiled spec as a human-readable summary, one line
// per term, followed by the IRF and coefficient registries in id order.
func Describe(spec *ir.ModelSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "response:  %s\n", spec.Response)
	fmt.Fprintf(&b, "intercept: %s\n", yesNo(spec.Intercept))

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "fixed (%d terms):\n", len(spec.Terms))
	for _, t := range spec.Terms {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", t.Name(), t.IRF, t.Coef)
	}
	for _, blk := range spec.Random {
		fmt.Fprintf(w, "random(%s) intercept=%s (%d terms):\n", blk.Group, yesNo(blk.Intercept), len(blk.Terms))
		for i, t := range blk.Terms {
			tie := "untied"
			if blk.Ties[i] >= 0 {
				tie = fmt.Sprintf("tied to fixed[%d]", blk.Ties[i])
			}
			ran := ""
			if t.Ran {
				ran = " ran"
			}
			fmt.Fprintf(w, "  %s\t%s%s\t%s\t%s\n", t.Name(), t.IRF, ran, t.Coef, tie)
		}
	}
	w.Flush()

	b.WriteString("irfs:\n")
	for _, id := range sortedIDs(spec.IRFs) {
		fmt.Fprintf(&b, "  %s = %s\n", id, irfSignature(spec.IRFs[id]))
	}
	b.WriteString("coefs:\n")
	for _, id := range sortedIDs(spec.Coefs) {
		c := spec.Coefs[id]
		if len(c.Groups) > 0 {
			fmt.Fprintf(&b, "  %s by %s\n", id, strings.Join(c.Groups, ", "))
		} else {
			fmt.Fprintf(&b, "  %s\n", id)
		}
	}
	return b.String()
}

// irfSignature renders an IRF definition in call syntax, e.g.
// ShiftedGamma(alpha=2, beta, delta<0) ran by subject of irf#1.
func irfSignature(s ir.IRFSpec) string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		switch {
		case p.Init != "":
			params[i] = p.Name + "=" + p.Init
		case p.Constraint == ir.ConstraintNegative:
			params[i] = p.Name + "<0"
		default:
			params[i] = p.Name
		}
	}
	out := s.Family + "(" + strings.Join(params, ", ") + ")"
	if s.Shape != "" {
		out += " [" + s.Shape + "]"
	}
	if s.Ran {
		out += " ran by " + s.Group
		if s.Base != "" {
			out += " of " + s.Base
		}
	}
	return out
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
