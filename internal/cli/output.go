package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/compiler"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A model failed to compile, a case failed, or a replay drifted
	ExitCommandError = 2 // Command error (config not found, database unreadable, etc.)
)

// Error codes, unified across all commands. E0xx are load and I/O
// problems, E2xx are formula compile errors, one per error kind.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeNoConfigs      = "E003" // No config files found
	ErrCodeLoadFailed     = "E004" // Config file could not be parsed
	ErrCodeNotFound       = "E005" // Path or record not found
	ErrCodeDuplicateModel = "E006" // Model name defined twice
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeStore          = "E008" // Record store error
	ErrCodeBadFilter      = "E009" // Model filter is not a valid pattern

	ErrCodeLexical              = "E201"
	ErrCodeSyntax               = "E202"
	ErrCodeUnknownFamily        = "E203"
	ErrCodeUnknownTransform     = "E204"
	ErrCodeTyingConflict        = "E205"
	ErrCodeInterceptAmbiguity   = "E206"
	ErrCodeInvalidShift         = "E207"
	ErrCodeInvalidPowerExponent = "E208"
	ErrCodeUnsupported          = "E209"
	ErrCodeCompilerInternal     = "E299" // Compiler produced an inconsistent spec
)

var compileCodes = map[string]string{
	"lexical":                ErrCodeLexical,
	"syntax":                 ErrCodeSyntax,
	"unknown_family":         ErrCodeUnknownFamily,
	"unknown_transform":      ErrCodeUnknownTransform,
	"tying_conflict":         ErrCodeTyingConflict,
	"intercept_ambiguity":    ErrCodeInterceptAmbiguity,
	"invalid_shift":          ErrCodeInvalidShift,
	"invalid_power_exponent": ErrCodeInvalidPowerExponent,
	"unsupported":            ErrCodeUnsupported,
}

// CompileErrorCode maps a compile error to its E2xx code.
func CompileErrorCode(err error) string {
	if code, ok := compileCodes[compiler.KindName(err)]; ok {
		return code
	}
	return ErrCodeCompilerInternal
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// newFormatter builds the formatter for a command. Diagnostics go to
// stderr so JSON on stdout stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E203", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.Respond(CLIResponse{Status: "ok", Data: data})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.Respond(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Respond writes a full response envelope as indented JSON.
func (f *OutputFormatter) Respond(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// fail reports a single command error and returns it with exit code 2.
func (f *OutputFormatter) fail(code, message string, err error) error {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
