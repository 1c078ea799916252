package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Model    string // optional - one model only
}

// DriftView is the JSON form of one drifted record.
type DriftView struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StoredHash string `json:"stored_hash"`
	Hash       string `json:"hash,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Checked       int         `json:"checked"`
	Drifts        []DriftView `json:"drifts"`
	Deterministic bool        `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompile stored formulas and verify their specs",
		Long: `Recompile the formula of every stored record and compare the result
with the stored spec hash. A mismatch means the compiler no longer produces
the spec an experiment was run with.

Exit codes:
  0 - Every record reproduced its spec
  1 - One or more records drifted
  2 - Command error (database not found, etc.)

Examples:
  cdrc replay --db ./records.db
  cdrc replay --db ./records.db --model CDR_base --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Model, "model", "", "replay one model only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	report, err := st.Replay(ctx, opts.Model, compiler.Compile)
	if err != nil {
		return formatter.fail(ErrCodeStore, "replay", err)
	}
	logger.Info("replay finished", "checked", report.Checked, "drifts", len(report.Drifts))

	result := ReplayResult{
		Checked:       report.Checked,
		Drifts:        make([]DriftView, 0, len(report.Drifts)),
		Deterministic: report.Clean(),
	}
	for _, d := range report.Drifts {
		v := DriftView{
			ID:         d.Record.ID,
			Model:      d.Record.Model,
			StoredHash: d.Record.SpecHash,
			Hash:       d.Hash,
		}
		if d.Err != nil {
			v.Error = d.Err.Error()
		}
		result.Drifts = append(result.Drifts, v)
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DRIFT",
			Message: fmt.Sprintf("%d record(s) no longer reproduce their spec", len(result.Drifts)),
		}
	}
	if err := f.Respond(response); err != nil {
		return err
	}

	if !result.Deterministic {
		// Drift = exit code 1
		return NewExitError(ExitFailure, "replay drift detected")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	if result.Checked == 0 {
		fmt.Fprintln(w, "No records found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d record(s)\n\n", result.Checked)
	for _, d := range result.Drifts {
		fmt.Fprintf(w, "✗ %s (%s)\n", d.Model, d.ID)
		if d.Error != "" {
			fmt.Fprintf(w, "  no longer compiles: %s\n", d.Error)
		} else {
			fmt.Fprintf(w, "  stored %s, now %s\n", shortHash(d.StoredHash), shortHash(d.Hash))
		}
		fmt.Fprintln(w)
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ All records reproduce their spec")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay drift detected")
	// Drift = exit code 1
	return NewExitError(ExitFailure, "replay drift detected")
}
