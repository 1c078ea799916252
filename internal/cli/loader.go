package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/config"
	"github.com/roach88/cdrc/internal/ir"
	"github.com/roach88/cdrc/internal/metrics"
)

// LoadError is a config loading failure with its CLI error code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadModels discovers config files, parses them and applies the model
// filters.
func LoadModels(args, filters []string, cdrOnly bool) ([]config.Model, error) {
	files, err := config.Load(args)
	if err != nil {
		return nil, loadError(err)
	}
	models, err := config.Select(config.Models(files), filters, cdrOnly)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadFilter, Message: err.Error(), Err: err}
	}
	return models, nil
}

func loadError(err error) *LoadError {
	code := ErrCodeLoadFailed
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = ErrCodeNotFound
	case errors.Is(err, config.ErrNoConfigs):
		code = ErrCodeNoConfigs
	case errors.Is(err, config.ErrDuplicateModel):
		code = ErrCodeDuplicateModel
	}
	return &LoadError{Code: code, Message: err.Error(), Err: err}
}

// ModelResult is the compilation outcome of one model section.
type ModelResult struct {
	Model config.Model
	Spec  *ir.ModelSpec
	Hash  string
	Err   error
}

// CompileModels compiles every model independently. A failing model does
// not stop the others. rec may be nil.
func CompileModels(models []config.Model, rec *metrics.Recorder, logger *slog.Logger) []ModelResult {
	results := make([]ModelResult, 0, len(models))
	for _, m := range models {
		res := ModelResult{Model: m}
		res.Spec, res.Err = compiler.Compile(m.Formula)
		if res.Err == nil {
			res.Hash, res.Err = ir.SpecHash(res.Spec)
		}
		if rec != nil {
			rec.Observe(res.Spec, res.Err)
		}
		if res.Err != nil {
			logger.Debug("model failed", "model", m.Name, "source", m.Pos(), "error", res.Err)
		} else {
			logger.Debug("model compiled", "model", m.Name, "terms", len(res.Spec.Terms), "hash", res.Hash)
		}
		results = append(results, res)
	}
	return results
}

// ModelError is the JSON form of a failed model.
type ModelError struct {
	Model   string `json:"model"`
	Source  string `json:"source"`
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Block   string `json:"block,omitempty"`
	Span    []int  `json:"span,omitempty"`
}

func newModelError(res ModelResult) ModelError {
	me := ModelError{
		Model:   res.Model.Name,
		Source:  res.Model.Pos(),
		Code:    CompileErrorCode(res.Err),
		Kind:    compiler.KindName(res.Err),
		Message: res.Err.Error(),
	}
	var ce *compiler.Error
	if errors.As(res.Err, &ce) {
		me.Message = ce.Message
		me.Block = ce.Block
		me.Span = []int{ce.Span.Start, ce.Span.End}
	}
	return me
}

// failures collects the failed results.
func failures(results []ModelResult) []ModelError {
	var out []ModelError
	for _, r := range results {
		if r.Err != nil {
			out = append(out, newModelError(r))
		}
	}
	return out
}

// writeModelErrorsText prints failures with the offending formula and a
// caret under the span.
func writeModelErrorsText(f *OutputFormatter, results []ModelResult) {
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		fmt.Fprintf(f.Writer, "%s (%s)\n", r.Model.Name, r.Model.Pos())
		var ce *compiler.Error
		if errors.As(r.Err, &ce) {
			fmt.Fprintf(f.Writer, "  %s: %s\n", CompileErrorCode(r.Err), ce.Error())
			for _, line := range strings.Split(ce.Caret(r.Model.Formula), "\n") {
				fmt.Fprintf(f.Writer, "    %s\n", line)
			}
		} else {
			fmt.Fprintf(f.Writer, "  %s: %v\n", CompileErrorCode(r.Err), r.Err)
		}
		fmt.Fprintln(f.Writer)
	}
}
