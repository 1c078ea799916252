package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is; use errors.As with *Error for
// the source span and production context.
var (
	ErrLexical              = errors.New("lexical error")
	ErrSyntax               = errors.New("syntax error")
	ErrUnknownFamily        = errors.New("unknown IRF family")
	ErrUnknownTransform     = errors.New("unknown transform")
	ErrTyingConflict        = errors.New("tying conflict")
	ErrInterceptAmbiguity   = errors.New("intercept ambiguity")
	ErrInvalidShift         = errors.New("invalid shift")
	ErrInvalidPowerExponent = errors.New("invalid power exponent")
	ErrUnsupported          = errors.New("unsupported formula feature")
)

// Span is a half-open byte range [Start, End) into the formula source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func span(start, end int) Span {
	return Span{Start: start, End: end}
}

// to extends s to cover o.
func (s Span) to(o Span) Span {
	return Span{Start: s.Start, End: o.End}
}

// Error is a compile error with source position.
type Error struct {
	Kind       error  // one of the Err* kinds
	Production string // smallest enclosing grammar production, e.g. "conv_call"
	Block      string // "fixed" or "random(<group>)" once known
	Message    string
	Span       Span
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: %s", e.Span.Start, e.Span.End, e.Kind)
	if e.Production != "" {
		fmt.Fprintf(&b, " in %s", e.Production)
	}
	if e.Block != "" {
		fmt.Fprintf(&b, " (%s)", e.Block)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Caret renders the offending source line with a marker under the span.
func (e *Error) Caret(src string) string {
	start := min(max(e.Span.Start, 0), len(src))
	end := min(max(e.Span.End, start+1), len(src)+1)
	return src + "\n" + strings.Repeat(" ", start) + strings.Repeat("^", end-start)
}

func newError(kind error, production string, sp Span, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		Production: production,
		Message:    fmt.Sprintf(format, args...),
		Span:       sp,
	}
}

// inBlock attaches block context to a compile error, leaving other errors untouched.
func inBlock(err error, block string) error {
	var ce *Error
	if errors.As(err, &ce) && ce.Block == "" {
		ce.Block = block
	}
	return err
}

var kindNames = []struct {
	kind error
	name string
}{
	{ErrLexical, "lexical"},
	{ErrSyntax, "syntax"},
	{ErrUnknownFamily, "unknown_family"},
	{ErrUnknownTransform, "unknown_transform"},
	{ErrTyingConflict, "tying_conflict"},
	{ErrInterceptAmbiguity, "intercept_ambiguity"},
	{ErrInvalidShift, "invalid_shift"},
	{ErrInvalidPowerExponent, "invalid_power_exponent"},
	{ErrUnsupported, "unsupported"},
}

// KindName returns a stable snake_case name for the kind of err, or
// "internal" when err is not a compile error.
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "internal"
}
