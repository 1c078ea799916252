package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/config"
	"github.com/roach88/cdrc/internal/metrics"
	"github.com/roach88/cdrc/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Database    string
	Models      []string
	CDROnly     bool
	Debounce    time.Duration
	MetricsFile string

	// started is called once the watcher is running.
	started func()
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Recompile configs as they change",
		Long: `Compile every config below a directory, then watch it and recompile
each config file when it changes. Press Ctrl-C to stop.

Example:
  cdrc watch ./experiments --db ./records.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record compiled specs in this SQLite database")
	cmd.Flags().StringArrayVarP(&opts.Models, "model", "m", nil, "model name or full-match regex (repeatable)")
	cmd.Flags().BoolVar(&opts.CDROnly, "cdr-only", false, "keep only CDR and DTSR models")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "wait this long for more changes before recompiling")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "rewrite Prometheus metrics to this textfile after each batch")

	return cmd
}

// watchSession holds the state of one watch run.
type watchSession struct {
	opts      *WatchOptions
	formatter *OutputFormatter
	logger    *slog.Logger
	rec       *metrics.Recorder
	st        *store.Store
}

func runWatch(ctx context.Context, opts *WatchOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return formatter.fail(ErrCodeNotFound, fmt.Sprintf("not a directory: %s", dir), nil)
	}

	s := &watchSession{opts: opts, formatter: formatter, logger: logger, rec: metrics.NewRecorder()}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		s.st = st
	}

	w, err := config.NewWatcher(config.WatchConfig{Root: dir, Debounce: opts.Debounce, Logger: logger})
	if err != nil {
		return formatter.fail(ErrCodeGeneric, "failed to create watcher", err)
	}

	// Initial pass over what already exists.
	if paths, err := config.Discover([]string{dir}); err == nil {
		for _, p := range paths {
			w.Seed(p)
			s.reload(ctx, config.Change{Path: p})
		}
	} else {
		logger.Warn("no configs yet", "dir", dir, "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return formatter.fail(ErrCodeGeneric, "failed to watch directory", err)
	}
	defer w.Stop()
	if opts.started != nil {
		opts.started()
	}

	for change := range w.Changes() {
		s.reload(ctx, change)
	}
	logger.Info("watcher stopped")
	return nil
}

// reload compiles the models of one changed config file. A change without
// a File is loaded from disk.
func (s *watchSession) reload(ctx context.Context, change config.Change) {
	out := s.formatter.Writer
	switch {
	case change.Removed:
		fmt.Fprintf(out, "- %s removed\n", change.Path)
		return
	case change.Err != nil:
		fmt.Fprintf(out, "✗ %s: %v\n", change.Path, change.Err)
		return
	}

	f := change.File
	if f == nil {
		loaded, err := config.LoadFile(change.Path)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", change.Path, err)
			return
		}
		f = loaded
	}

	models, err := config.Select(f.Models, s.opts.Models, s.opts.CDROnly)
	if err != nil {
		fmt.Fprintf(out, "✗ %s: %v\n", change.Path, err)
		return
	}
	results := CompileModels(models, s.rec, s.logger)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d fixed term(s), %d random block(s)  %s\n",
			r.Model.Name, len(r.Spec.Terms), len(r.Spec.Random), shortHash(r.Hash))
		if s.st != nil {
			s.record(ctx, r)
		}
	}
	writeModelErrorsText(s.formatter, results)

	if s.opts.MetricsFile != "" {
		if err := s.rec.WriteTextfile(s.opts.MetricsFile); err != nil {
			s.logger.Error("failed to write metrics", "path", s.opts.MetricsFile, "error", err)
		}
	}
}

// record stores a compiled model unless the model's latest record already
// has the same spec hash.
func (s *watchSession) record(ctx context.Context, r ModelResult) {
	prev, err := s.st.LatestByModel(ctx, r.Model.Name)
	switch {
	case err == nil && prev.SpecHash == r.Hash:
		s.logger.Debug("spec unchanged, not recorded", "model", r.Model.Name, "id", prev.ID)
		return
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		s.logger.Error("failed to read latest record", "model", r.Model.Name, "error", err)
		return
	}
	rec, err := store.NewRecord(r.Model.Name, r.Model.Source, r.Model.Description, r.Spec)
	if err == nil {
		rec, err = s.st.WriteRecord(ctx, rec)
	}
	if err != nil {
		s.logger.Error("failed to record spec", "model", r.Model.Name, "error", err)
		return
	}
	s.logger.Info("spec recorded", "model", r.Model.Name, "id", rec.ID, "seq", rec.Seq)
}
