package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Models yaml.Node `yaml:"models"`
}

type yamlModel struct {
	Formula     string `yaml:"formula"`
	Description string `yaml:"description,omitempty"`
}

// parseYAML reads sections written as
//
//	models:
//	  CDR_base:
//	    formula: y ~ C(A, Gamma())
//
// Unknown keys are rejected.
func parseYAML(path string, data []byte) ([]Model, error) {
	var doc yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w: %v", path, ErrInvalidConfig, err)
	}
	if doc.Models.Kind == 0 {
		return nil, nil
	}
	if doc.Models.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s:%d: %w: models must be a mapping", path, doc.Models.Line, ErrInvalidConfig)
	}

	// Mapping content alternates key and value nodes in document order.
	var models []Model
	content := doc.Models.Content
	for i := 0; i+1 < len(content); i += 2 {
		key, val := content[i], content[i+1]
		m := Model{Name: key.Value, Source: path, Line: key.Line}

		var body yamlModel
		if err := decodeStrict(val, &body); err != nil {
			return nil, fmt.Errorf("%s: %w: model %s: %v", m.Pos(), ErrInvalidConfig, m.Name, err)
		}
		m.Formula = body.Formula
		m.Description = body.Description
		models = append(models, m)
	}
	return models, nil
}

// decodeStrict decodes a node with unknown-field checking, which
// yaml.Node.Decode does not offer.
func decodeStrict(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}
