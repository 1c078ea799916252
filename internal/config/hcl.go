package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

type hclFile struct {
	Locals []*hclLocals `hcl:"locals,block"`
	Models []*hclModel  `hcl:"model,block"`
}

type hclLocals struct {
	Body hcl.Body `hcl:",remain"`
}

type hclModel struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclModelBody struct {
	Formula     string `hcl:"formula"`
	Description string `hcl:"description,optional"`
}

// parseHCL reads sections written as
//
//	locals {
//	  base = "C(A, Gamma())"
//	}
//
//	model "CDR_base" {
//	  formula = "y ~ ${local.base} + C(B, Gamma())"
//	}
//
// String locals can be interpolated into formulas through local.<name>.
func parseHCL(path string, data []byte) ([]Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, diags.Error())
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, diags.Error())
	}

	evalCtx, err := localsContext(parsed.Locals)
	if err != nil {
		return nil, err
	}

	models := make([]Model, 0, len(parsed.Models))
	for _, block := range parsed.Models {
		m := Model{Name: block.Name, Source: path}
		if body, ok := block.Body.(*hclsyntax.Body); ok {
			m.Line = body.SrcRange.Start.Line
		}

		var body hclModelBody
		if diags := gohcl.DecodeBody(block.Body, evalCtx, &body); diags.HasErrors() {
			return nil, fmt.Errorf("%w: model %s: %s", ErrInvalidConfig, m.Name, diags.Error())
		}
		m.Formula = body.Formula
		m.Description = body.Description
		models = append(models, m)
	}
	return models, nil
}

// localsContext evaluates every locals attribute to a string and exposes
// them to model bodies as local.<name>.
func localsContext(blocks []*hclLocals) (*hcl.EvalContext, error) {
	locals := make(map[string]cty.Value)
	for _, block := range blocks {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: locals: %s", ErrInvalidConfig, diags.Error())
		}
		for name, attr := range attrs {
			if _, dup := locals[name]; dup {
				return nil, fmt.Errorf("%s: %w: local %s is defined more than once", attr.Range, ErrInvalidConfig, name)
			}
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%w: local %s: %s", ErrInvalidConfig, name, diags.Error())
			}
			str, err := convert.Convert(val, cty.String)
			if err != nil || str.IsNull() {
				return nil, fmt.Errorf("%s: %w: local %s must be a string", attr.Range, ErrInvalidConfig, name)
			}
			locals[name] = str
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"local": cty.ObjectVal(locals)},
	}, nil
}
