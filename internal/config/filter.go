package config

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterModels returns the names admitted by filters, in the order the
// filters match and without repeats. A filter admits a name equal to it or
// one its regular expression matches entirely. With no filters every name
// is admitted. cdrOnly first drops names without a CDR or DTSR prefix.
func FilterModels(names, filters []string, cdrOnly bool) ([]string, error) {
	if cdrOnly {
		var kept []string
		for _, n := range names {
			if strings.HasPrefix(n, "CDR") || strings.HasPrefix(n, "DTSR") {
				kept = append(kept, n)
			}
		}
		names = kept
	}
	if len(filters) == 0 {
		return names, nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, f := range filters {
		re, err := regexp.Compile(`^(?:` + strings.TrimSuffix(f, "$") + `)$`)
		if err != nil {
			return nil, fmt.Errorf("model filter %q: %w", f, err)
		}
		for _, n := range names {
			if !seen[n] && (n == f || re.MatchString(n)) {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// Select applies FilterModels to model sections.
func Select(models []Model, filters []string, cdrOnly bool) ([]Model, error) {
	byName := make(map[string]Model, len(models))
	names := make([]string, len(models))
	for i, m := range models {
		byName[m.Name] = m
		names[i] = m.Name
	}
	kept, err := FilterModels(names, filters, cdrOnly)
	if err != nil {
		return nil, err
	}
	out := make([]Model, len(kept))
	for i, n := range kept {
		out[i] = byName[n]
	}
	return out, nil
}

// Nested reports whether two ablated model names, written
// base!ablated1!ablated2, share a base and differ by exactly one ablated
// variable, the smaller set being contained in the larger.
func Nested(a, b string) bool {
	baseA, ablA := splitAblation(a)
	baseB, ablB := splitAblation(b)
	if baseA != baseB {
		return false
	}
	small, large := ablA, ablB
	if len(small) >= len(large) {
		small, large = large, small
	}
	for v := range small {
		if !large[v] {
			return false
		}
	}
	extra := 0
	for v := range large {
		if !small[v] {
			extra++
		}
	}
	return extra == 1
}

func splitAblation(name string) (string, map[string]bool) {
	parts := strings.Split(name, "!")
	set := make(map[string]bool, len(parts)-1)
	for _, p := range parts[1:] {
		set[p] = true
	}
	return parts[0], set
}

// AblationPair is a one-degree-of-freedom comparison: Ablated is Full with
// Variable also ablated.
type AblationPair struct {
	Full     string `json:"full"`
	Ablated  string `json:"ablated"`
	Variable string `json:"variable"`
}

// AblationPairs returns every nested pair among names, in the order the
// first member of each pair appears.
func AblationPairs(names []string) []AblationPair {
	pairs := []AblationPair{}
	for i, a := range names {
		for _, b := range names[i+1:] {
			if !Nested(a, b) {
				continue
			}
			_, ablA := splitAblation(a)
			_, ablB := splitAblation(b)
			p := AblationPair{Full: a, Ablated: b}
			if len(ablA) > len(ablB) {
				p.Full, p.Ablated = b, a
				ablA, ablB = ablB, ablA
			}
			for v := range ablB {
				if !ablA[v] {
					p.Variable = v
				}
			}
			pairs = append(pairs, p)
		}
	}
	return pairs
}
