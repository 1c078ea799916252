package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Models  []string
	CDROnly bool
}

// ValidationResult holds the result of validation.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Models int          `json:"models"`
	Errors []ModelError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config>...",
		Short: "Check that every model formula compiles",
		Long: `Compile every model section of the given configs and report errors only.

Nothing is written. Exit code 1 means at least one formula is invalid.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Models, "model", "m", nil, "model name or full-match regex (repeatable)")
	cmd.Flags().BoolVar(&opts.CDROnly, "cdr-only", false, "keep only CDR and DTSR models")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	models, err := LoadModels(args, opts.Models, opts.CDROnly)
	if err != nil {
		return failLoad(formatter, err)
	}

	results := CompileModels(models, nil, opts.logger())
	errs := failures(results)
	if len(errs) == 0 {
		return outputValidateSuccess(formatter, len(models))
	}
	return outputValidationErrors(formatter, len(models), errs, results)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Models: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d model(s) valid\n", count)
	return nil
}

// outputValidationErrors outputs every failed model.
func outputValidationErrors(formatter *OutputFormatter, count int, errs []ModelError, results []ModelResult) error {
	if formatter.Format == "json" {
		err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Models: count, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: fmt.Sprintf("%s: %s", errs[0].Model, errs[0].Message),
			},
		})
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		writeModelErrorsText(formatter, results)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
