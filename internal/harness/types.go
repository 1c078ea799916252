package harness

import (
	"github.com/roach88/cdrc/internal/ir"
)

// Result is the outcome of one case.
type Result struct {
	// Case is the case that ran.
	Case Case

	// Spec is the compiled spec, nil when compilation failed.
	Spec *ir.ModelSpec

	// Err is the compile error, nil on success.
	Err error

	// Pass indicates every expectation matched.
	Pass bool

	// Errors contains one message per failed expectation.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
// Used as the starting point for case execution.
func NewResult(c Case) *Result {
	return &Result{
		Case:   c,
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
