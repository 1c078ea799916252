package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/ir"
	"github.com/roach88/cdrc/internal/metrics"
	"github.com/roach88/cdrc/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Models      []string // model name filters
	CDROnly     bool
	Output      string // output file path
	Database    string // record store path, optional
	MetricsFile string // Prometheus textfile path, optional
}

// CompiledModel is the JSON form of a successfully compiled model.
type CompiledModel struct {
	Name     string          `json:"name"`
	Source   string          `json:"source"`
	Hash     string          `json:"hash"`
	RecordID string          `json:"record_id,omitempty"`
	Spec     json.RawMessage `json:"spec"`
}

// CompilationResult is the payload of the compile command.
type CompilationResult struct {
	Models []CompiledModel `json:"models"`
	Errors []ModelError    `json:"errors,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config>...",
		Short: "Compile model formulas to canonical model specs",
		Long: `Compile the model sections of one or more experiment configs.

Each argument is a config file, a directory searched for *.cue, *.yaml,
*.yml and *.hcl files, or a doublestar glob. Every model compiles
independently; a failing model does not stop the others.

Exit codes:
  0 - All models compiled
  1 - One or more models failed to compile
  2 - Command error (config not found, unreadable, etc.)

Examples:
  cdrc compile ./experiments
  cdrc compile ./experiments -m 'CDR_.*' --cdr-only
  cdrc compile models.yaml -o specs.json --db ./records.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Models, "model", "m", nil, "model name or full-match regex (repeatable)")
	cmd.Flags().BoolVar(&opts.CDROnly, "cdr-only", false, "keep only CDR and DTSR models")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical specs to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record compiled specs in this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	models, err := LoadModels(args, opts.Models, opts.CDROnly)
	if err != nil {
		return failLoad(formatter, err)
	}
	if len(models) == 0 {
		return formatter.fail(ErrCodeNotFound, "no models matched", nil)
	}
	formatter.VerboseLog("Compiling %d model(s)", len(models))

	rec := metrics.NewRecorder()
	results := CompileModels(models, rec, logger)
	failed := failures(results)

	result := CompilationResult{Models: []CompiledModel{}, Errors: failed}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		data, err := ir.MarshalCanonical(r.Spec)
		if err != nil {
			return formatter.fail(ErrCodeGeneric, "marshal spec", err)
		}
		result.Models = append(result.Models, CompiledModel{
			Name:   r.Model.Name,
			Source: r.Model.Pos(),
			Hash:   r.Hash,
			Spec:   data,
		})
	}

	if opts.Database != "" {
		if err := recordModels(ctx, opts.Database, results, &result, logger); err != nil {
			return formatter.fail(ErrCodeStore, "record specs", err)
		}
	}
	if opts.MetricsFile != "" {
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			return formatter.fail(ErrCodeWriteFailed, "write metrics", err)
		}
		logger.Debug("metrics written", "path", opts.MetricsFile)
	}
	if opts.Output != "" && len(failed) == 0 {
		if err := writeSpecsFile(opts.Output, results); err != nil {
			return formatter.fail(ErrCodeWriteFailed, "write output file", err)
		}
		logger.Info("specs written", "path", opts.Output, "models", len(results))
	}

	return outputCompileResult(formatter, result, results, opts.Output)
}

// recordModels stores each compiled model and fills in its record id.
func recordModels(ctx context.Context, path string, results []ModelResult, out *CompilationResult, logger *slog.Logger) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	i := 0
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		rec, err := store.NewRecord(r.Model.Name, r.Model.Source, r.Model.Description, r.Spec)
		if err != nil {
			return err
		}
		rec, err = st.WriteRecord(ctx, rec)
		if err != nil {
			return fmt.Errorf("model %s: %w", r.Model.Name, err)
		}
		out.Models[i].RecordID = rec.ID
		i++
		logger.Info("spec recorded", "model", r.Model.Name, "id", rec.ID, "seq", rec.Seq)
	}
	return nil
}

// writeSpecsFile writes every compiled model to one canonical JSON file,
// keyed by model name.
func writeSpecsFile(path string, results []ModelResult) error {
	models := make(ir.IRObject, len(results))
	for _, r := range results {
		models[r.Model.Name] = ir.IRObject{
			"config": ir.IRString(r.Model.Source),
			"hash":   ir.IRString(r.Hash),
			"spec":   r.Spec.IR(),
		}
	}
	data, err := ir.MarshalCanonical(ir.IRObject{
		"compiler_version": ir.IRString(ir.CompilerVersion),
		"models":           models,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func outputCompileResult(f *OutputFormatter, result CompilationResult, results []ModelResult, outputFile string) error {
	failed := len(result.Errors)
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failed > 0 {
			first := result.Errors[0]
			resp.Status = "error"
			resp.Error = &CLIError{Code: first.Code, Message: fmt.Sprintf("%s: %s", first.Model, first.Message)}
		}
		if err := f.Respond(resp); err != nil {
			return err
		}
		return compileExit(failed)
	}

	if len(result.Models) > 0 {
		fmt.Fprintf(f.Writer, "✓ Compiled %d model(s)\n\n", len(result.Models))
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			fmt.Fprintf(f.Writer, "  %s: %d fixed term(s), %d random block(s)  %s\n",
				r.Model.Name, len(r.Spec.Terms), len(r.Spec.Random), shortHash(r.Hash))
		}
		fmt.Fprintln(f.Writer)
	}
	if failed > 0 {
		fmt.Fprintf(f.Writer, "✗ %d model(s) failed\n\n", failed)
		writeModelErrorsText(f, results)
	}
	if outputFile != "" && failed == 0 {
		fmt.Fprintf(f.Writer, "Wrote canonical specs to %s\n", outputFile)
	}
	return compileExit(failed)
}

func compileExit(failed int) error {
	if failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d model(s) failed to compile", failed))
}

// failLoad reports a config loading error.
func failLoad(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return f.fail(le.Code, le.Message, nil)
	}
	return f.fail(ErrCodeGeneric, err.Error(), nil)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
