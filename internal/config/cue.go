package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// parseCUE reads sections written as
//
//	model: CDR_base: {
//		formula:     "y ~ C(A, Gamma())"
//		description: "baseline"
//	}
func parseCUE(path string, data []byte) ([]Model, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrInvalidConfig, err)
	}

	root := value.LookupPath(cue.ParsePath("model"))
	if !root.Exists() {
		return nil, nil
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: model: %v", path, ErrInvalidConfig, err)
	}

	var models []Model
	for iter.Next() {
		m := Model{Name: iter.Label(), Source: path, Line: iter.Value().Pos().Line()}
		fields, err := iter.Value().Fields()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: model %s must be a struct", m.Pos(), ErrInvalidConfig, m.Name)
		}
		for fields.Next() {
			label := fields.Label()
			var dst *string
			switch label {
			case "formula":
				dst = &m.Formula
			case "description":
				dst = &m.Description
			default:
				return nil, fmt.Errorf("%s: %w: model %s: unknown field %q", m.Pos(), ErrInvalidConfig, m.Name, label)
			}
			s, err := fields.Value().String()
			if err != nil {
				return nil, fmt.Errorf("%s: %w: model %s: %s must be a string", m.Pos(), ErrInvalidConfig, m.Name, label)
			}
			*dst = s
		}
		models = append(models, m)
	}
	return models, nil
}
