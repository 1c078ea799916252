package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // suite filter (glob pattern)
}

// CaseResult holds the result of a single case.
type CaseResult struct {
	Suite  string   `json:"suite"`
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <suites-dir>",
		Short: "Run formula conformance suites",
		Long: `Run YAML conformance suites against the compiler.

Each case compiles one formula and checks its expectations. When
<suites-dir>/golden/<case>.golden exists, the canonical snapshot of the
outcome must match it byte for byte.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, etc.)

Examples:
  cdrc test ./suites
  cdrc test ./suites --filter "random*"
  cdrc test ./suites --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter suite files by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, suitesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(suitesDir); err != nil || !info.IsDir() {
		return formatter.fail(ErrCodeNotFound, fmt.Sprintf("suites directory not found: %s", suitesDir), nil)
	}

	suiteFiles, err := findSuiteFiles(suitesDir, opts.Filter)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, "failed to find suites", err)
	}

	result := TestResult{Cases: []CaseResult{}}
	h := harness.New(harness.WithLogger(opts.logger()))
	goldenDir := filepath.Join(suitesDir, "golden")

	for _, path := range suiteFiles {
		suite, err := harness.LoadSuite(path)
		if err != nil {
			result.add(CaseResult{
				Suite:  filepath.Base(path),
				Name:   "(load)",
				Errors: []string{err.Error()},
			})
			continue
		}
		for _, res := range h.RunSuite(suite) {
			cr := CaseResult{Suite: suite.Name, Name: res.Case.Name, Pass: res.Pass, Errors: res.Errors}
			if err := checkGolden(goldenDir, res, opts.Update); err != nil {
				cr.Pass = false
				cr.Errors = append(cr.Errors, err.Error())
			}
			result.add(cr)
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

func (r *TestResult) add(c CaseResult) {
	r.Cases = append(r.Cases, c)
	r.Total++
	if c.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// findSuiteFiles returns the YAML suites directly inside dir, sorted.
func findSuiteFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// checkGolden compares a case snapshot with its golden file, or rewrites
// the file when update is set. A case without a golden file is checked by
// its expectations alone.
func checkGolden(dir string, res *harness.Result, update bool) error {
	snapshot, err := harness.Snapshot(res)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	path := filepath.Join(dir, res.Case.Name+".golden")

	if update {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		return os.WriteFile(path, snapshot, 0644)
	}

	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, snapshot) {
		return fmt.Errorf("snapshot does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(f *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d case(s) failed", result.Failed),
		}
	}
	if err := f.Respond(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(f *OutputFormatter, result TestResult) error {
	w := f.Writer

	for _, c := range result.Cases {
		if c.Pass {
			fmt.Fprintf(w, "✓ %s/%s\n", c.Suite, c.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s/%s\n", c.Suite, c.Name)
		for _, e := range c.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}

	if result.Total == 0 {
		fmt.Fprintln(w, "No cases found.")
		return nil
	}
	fmt.Fprintln(w, "✓ All cases passed")
	return nil
}
