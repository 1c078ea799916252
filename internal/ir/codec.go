package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IR converts the spec to its canonical value tree. Keys match the JSON
// tags so the canonical bytes decode back through UnmarshalModelSpec.
func (m ModelSpec) IR() IRObject {
	terms := make(IRArray, len(m.Terms))
	for i, t := range m.Terms {
		terms[i] = t.IR()
	}
	random := make(IRArray, len(m.Random))
	for i, b := range m.Random {
		random[i] = b.IR()
	}
	irfs := make(IRObject, len(m.IRFs))
	for id, s := range m.IRFs {
		irfs[id] = s.IR()
	}
	coefs := make(IRObject, len(m.Coefs))
	for id, c := range m.Coefs {
		coefs[id] = c.IR()
	}
	return IRObject{
		"formula":    IRString(m.Formula),
		"response":   m.Response.IR(),
		"intercept":  IRBool(m.Intercept),
		"terms":      terms,
		"random":     random,
		"irfs":       irfs,
		"coefs":      coefs,
		"ir_version": IRString(m.IRVersion),
	}
}

// IR converts the reference to its canonical value tree.
func (v VariableRef) IR() IRObject {
	obj := IRObject{"name": IRString(v.Name)}
	if len(v.Transforms) > 0 {
		obj["transforms"] = stringArray(v.Transforms)
	}
	return obj
}

// IR converts the term to its canonical value tree.
func (t Term) IR() IRObject {
	vars := make(IRArray, len(t.Vars))
	for i, v := range t.Vars {
		vars[i] = v.IR()
	}
	obj := IRObject{
		"vars":    vars,
		"irf_id":  IRString(t.IRF),
		"coef_id": IRString(t.Coef),
	}
	if t.Ran {
		obj["ran"] = IRBool(true)
	}
	return obj
}

// IR converts the block to its canonical value tree.
func (b RandomEffectBlock) IR() IRObject {
	terms := make(IRArray, len(b.Terms))
	for i, t := range b.Terms {
		terms[i] = t.IR()
	}
	ties := make(IRArray, len(b.Ties))
	for i, tie := range b.Ties {
		ties[i] = IRInt(tie)
	}
	return IRObject{
		"group":     IRString(b.Group),
		"intercept": IRBool(b.Intercept),
		"terms":     terms,
		"ties":      ties,
	}
}

// IR converts the IRF definition to its canonical value tree.
func (s IRFSpec) IR() IRObject {
	params := make(IRArray, len(s.Params))
	for i, p := range s.Params {
		param := IRObject{"name": IRString(p.Name)}
		if p.Init != "" {
			param["init"] = IRString(p.Init)
		}
		if p.Constraint != "" {
			param["constraint"] = IRString(p.Constraint)
		}
		params[i] = param
	}
	obj := IRObject{
		"id":     IRString(s.ID),
		"family": IRString(s.Family),
		"params": params,
	}
	if s.Ran {
		obj["ran"] = IRBool(true)
	}
	if s.Group != "" {
		obj["group"] = IRString(s.Group)
	}
	if s.Base != "" {
		obj["base"] = IRString(s.Base)
	}
	if s.Shape != "" {
		obj["shape"] = IRString(s.Shape)
	}
	return obj
}

// IR converts the coefficient definition to its canonical value tree.
func (c CoefSpec) IR() IRObject {
	obj := IRObject{"id": IRString(c.ID)}
	if len(c.Groups) > 0 {
		obj["groups"] = stringArray(c.Groups)
	}
	return obj
}

// UnmarshalModelSpec decodes a spec written by MarshalCanonical (or by
// encoding/json). Unknown fields are rejected so that a record written by a
// newer IR version fails loudly instead of losing data.
func UnmarshalModelSpec(data []byte) (*ModelSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var spec ModelSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode model spec: %w", err)
	}
	if spec.IRVersion != IRVersion {
		return nil, fmt.Errorf("decode model spec: ir_version %q, expected %q", spec.IRVersion, IRVersion)
	}
	for i, b := range spec.Random {
		if len(b.Ties) != len(b.Terms) {
			return nil, fmt.Errorf("decode model spec: random[%d]: %d ties for %d terms", i, len(b.Ties), len(b.Terms))
		}
	}
	return &spec, nil
}
