package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a named list of conformance cases.
type Suite struct {
	// Name uniquely identifies this suite.
	Name string `yaml:"name"`

	// Description explains what the suite covers.
	Description string `yaml:"description,omitempty"`

	// Cases run in order.
	Cases []Case `yaml:"cases"`
}

// Case compiles one formula and checks the outcome.
type Case struct {
	// Name identifies the case and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Formula is the source text handed to the compiler.
	Formula string `yaml:"formula"`

	Expect Expect `yaml:"expect"`
}

// Expect lists what the compilation must produce. Only the fields that
// are set are checked.
type Expect struct {
	// Error is the expected error kind. When set, compilation must fail
	// and no other expectation may be given.
	Error string `yaml:"error,omitempty"`

	Terms     []string       `yaml:"terms,omitempty"`
	Intercept *bool          `yaml:"intercept,omitempty"`
	IRFs      *int           `yaml:"irfs,omitempty"`
	Coefs     *int           `yaml:"coefs,omitempty"`
	Groups    []string       `yaml:"groups,omitempty"`
	Random    []RandomExpect `yaml:"random,omitempty"`
}

// RandomExpect describes one random-effect block, matched by position.
type RandomExpect struct {
	Group     string   `yaml:"group"`
	Intercept *bool    `yaml:"intercept,omitempty"`
	Terms     []string `yaml:"terms,omitempty"`
	Ties      []int    `yaml:"ties,omitempty"`
}

// errorOnly reports whether the expectation is a pure error expectation.
func (e Expect) errorOnly() bool {
	return e.Terms == nil && e.Intercept == nil && e.IRFs == nil &&
		e.Coefs == nil && e.Groups == nil && e.Random == nil
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", path, err)
	}
	return &suite, nil
}

// validateSuite checks that required fields are present and valid.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.Formula == "" {
			return fmt.Errorf("case %s: formula is required", c.Name)
		}
		if c.Expect.Error != "" && !c.Expect.errorOnly() {
			return fmt.Errorf("case %s: expect.error cannot be combined with other expectations", c.Name)
		}
	}
	return nil
}
