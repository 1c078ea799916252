package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

// ExpandOptions holds flags for the expand command.
type ExpandOptions struct {
	*RootOptions
	Tokens bool
}

// TokenInfo is the JSON form of one formula token.
type TokenInfo struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ExpandResult is the payload of the expand command.
type ExpandResult struct {
	Formula string          `json:"formula"`
	Hash    string          `json:"hash"`
	Terms   []string        `json:"terms"`
	Tokens  []TokenInfo     `json:"tokens,omitempty"`
	Spec    json.RawMessage `json:"spec"`
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expand <formula>",
		Short: "Compile one formula and show its expanded terms",
		Long: `Compile a single formula given on the command line and print the
expanded fixed and random terms with their IRF and coefficient ids.

Example:
  cdrc expand 'y ~ C((A + B)**2, Gamma()) + (C(A, Gamma(ran=T)) | subject)'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Tokens, "tokens", false, "also print the token stream")

	return cmd
}

func runExpand(opts *ExpandOptions, formula string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var tokens []compiler.Token
	if opts.Tokens {
		toks, err := compiler.Tokenize(formula)
		if err != nil {
			return outputFormulaError(formatter, formula, err)
		}
		tokens = toks
	}

	spec, err := compiler.Compile(formula)
	if err != nil {
		return outputFormulaError(formatter, formula, err)
	}
	hash, err := ir.SpecHash(spec)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, "hash spec", err)
	}

	if formatter.Format == "json" {
		data, err := ir.MarshalCanonical(spec)
		if err != nil {
			return formatter.fail(ErrCodeGeneric, "marshal spec", err)
		}
		result := ExpandResult{
			Formula: formula,
			Hash:    hash,
			Terms:   termNames(spec.Terms),
			Spec:    data,
		}
		for _, t := range tokens {
			if t.Kind == compiler.TokEOF {
				continue
			}
			result.Tokens = append(result.Tokens, TokenInfo{Kind: t.Kind.String(), Text: t.Text, Start: t.Span.Start, End: t.Span.End})
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(tokens) > 0 {
		fmt.Fprintln(w, "tokens:")
		for _, t := range tokens {
			if t.Kind == compiler.TokEOF {
				continue
			}
			fmt.Fprintf(w, "  %3d:%-3d %-8s %s\n", t.Span.Start, t.Span.End, t.Kind, t.Text)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, compiler.Describe(spec))
	fmt.Fprintf(w, "hash: %s\n", hash)
	return nil
}

// outputFormulaError reports a compile error for a formula typed on the
// command line.
func outputFormulaError(f *OutputFormatter, formula string, err error) error {
	code := CompileErrorCode(err)
	var ce *compiler.Error
	if f.Format == "json" {
		details := map[string]any{"kind": compiler.KindName(err)}
		if errors.As(err, &ce) {
			details["span"] = []int{ce.Span.Start, ce.Span.End}
			details["production"] = ce.Production
			if ce.Block != "" {
				details["block"] = ce.Block
			}
		}
		if rerr := f.Error(code, err.Error(), details); rerr != nil {
			return rerr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %v\n", code, err)
		if errors.As(err, &ce) {
			fmt.Fprintln(f.Writer, ce.Caret(formula))
		}
	}
	return WrapExitError(ExitFailure, "formula does not compile", err)
}

func termNames(terms []ir.Term) []string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name()
	}
	return names
}
