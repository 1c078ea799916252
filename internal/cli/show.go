package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
	"github.com/roach88/cdrc/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Model    string // list filter when no record id is given
	Hash     string // show the latest record with this spec hash
}

// RecordView is the JSON form of a stored record.
type RecordView struct {
	ID              string          `json:"id"`
	Seq             int64           `json:"seq"`
	Model           string          `json:"model"`
	ConfigPath      string          `json:"config_path"`
	Description     string          `json:"description,omitempty"`
	Formula         string          `json:"formula"`
	SpecHash        string          `json:"spec_hash"`
	CompilerVersion string          `json:"compiler_version"`
	IRVersion       string          `json:"ir_version"`
	Spec            json.RawMessage `json:"spec,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [record-id]",
		Short: "Show stored compilation records",
		Long: `Print one stored record with its compiled spec, or list the records
of the store (optionally of one model) in the order they were written.

Examples:
  cdrc show --db ./records.db
  cdrc show --db ./records.db --model CDR_base
  cdrc show --db ./records.db 0192f7a0-...
  cdrc show --db ./records.db --hash 3f2a...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Model, "model", "", "list only records of this model")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "show the latest record with this spec hash")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Hash != "" && len(args) > 0 {
		return formatter.fail(ErrCodeGeneric, "give either a record id or --hash, not both", nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.Hash != "" {
		rec, err := st.LatestByHash(ctx, opts.Hash)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.fail(ErrCodeNotFound, fmt.Sprintf("no record with spec hash %s", opts.Hash), nil)
		}
		if err != nil {
			return formatter.fail(ErrCodeStore, "read record", err)
		}
		return outputRecord(formatter, rec)
	}

	if len(args) == 0 {
		records, err := st.ListRecords(ctx, opts.Model)
		if err != nil {
			return formatter.fail(ErrCodeStore, "list records", err)
		}
		return outputRecordList(formatter, records)
	}

	rec, err := st.ReadRecord(ctx, args[0])
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.fail(ErrCodeNotFound, fmt.Sprintf("record %s not found", args[0]), nil)
	}
	if err != nil {
		return formatter.fail(ErrCodeStore, "read record", err)
	}
	return outputRecord(formatter, rec)
}

func recordView(rec store.Record, withSpec bool) (RecordView, error) {
	v := RecordView{
		ID:              rec.ID,
		Seq:             rec.Seq,
		Model:           rec.Model,
		ConfigPath:      rec.ConfigPath,
		Description:     rec.Description,
		Formula:         rec.Spec.Formula,
		SpecHash:        rec.SpecHash,
		CompilerVersion: rec.CompilerVersion,
		IRVersion:       rec.IRVersion,
	}
	if withSpec {
		data, err := ir.MarshalCanonical(rec.Spec)
		if err != nil {
			return RecordView{}, err
		}
		v.Spec = data
	}
	return v, nil
}

func outputRecord(f *OutputFormatter, rec store.Record) error {
	if f.Format == "json" {
		v, err := recordView(rec, true)
		if err != nil {
			return f.fail(ErrCodeGeneric, "marshal spec", err)
		}
		return f.Success(v)
	}

	w := f.Writer
	fmt.Fprintf(w, "record:    %s (seq %d)\n", rec.ID, rec.Seq)
	fmt.Fprintf(w, "model:     %s\n", rec.Model)
	fmt.Fprintf(w, "config:    %s\n", rec.ConfigPath)
	if rec.Description != "" {
		fmt.Fprintf(w, "about:     %s\n", rec.Description)
	}
	fmt.Fprintf(w, "formula:   %s\n", rec.Spec.Formula)
	fmt.Fprintf(w, "hash:      %s\n", rec.SpecHash)
	fmt.Fprintf(w, "compiler:  %s (ir %s)\n\n", rec.CompilerVersion, rec.IRVersion)
	fmt.Fprint(w, compiler.Describe(rec.Spec))
	return nil
}

func outputRecordList(f *OutputFormatter, records []store.Record) error {
	if f.Format == "json" {
		views := make([]RecordView, 0, len(records))
		for _, rec := range records {
			v, _ := recordView(rec, false)
			views = append(views, v)
		}
		return f.Success(views)
	}

	if len(records) == 0 {
		fmt.Fprintln(f.Writer, "No records found.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tMODEL\tHASH")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rec.Seq, rec.ID, rec.Model, shortHash(rec.SpecHash))
	}
	return tw.Flush()
}
