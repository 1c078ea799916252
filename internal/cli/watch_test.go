package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdrc/internal/config"
	"github.com/roach88/cdrc/internal/store"
)

// syncBuffer lets the test read output while the watcher writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRecompilesChangedConfig(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "records.db")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"),
		[]byte("models:\n  CDR_a:\n    formula: \"y ~ C(A, Gamma())\"\n"), 0644))

	out := &syncBuffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)

	started := make(chan struct{})
	opts := &WatchOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		Debounce:    20 * time.Millisecond,
		started:     func() { close(started) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, opts, dir, cmd) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
	assert.Contains(t, out.String(), "✓ CDR_a: 1 fixed term(s)")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"),
		[]byte("models:\n  CDR_b:\n    formula: \"y ~ C(B, Foo())\"\n  CDR_c:\n    formula: \"y ~ C(C, Normal())\"\n"), 0644))

	assert.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "✓ CDR_c") && strings.Contains(s, "CDR_b (")
	}, 5*time.Second, 20*time.Millisecond, "output: %s", out.String())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	records, err := st.ListRecords(context.Background(), "")
	require.NoError(t, err)
	models := make([]string, 0, len(records))
	for _, r := range records {
		models = append(models, r.Model)
	}
	assert.Contains(t, models, "CDR_a")
	assert.Contains(t, models, "CDR_c")
	assert.NotContains(t, models, "CDR_b")
}

func TestWatchRejectsFile(t *testing.T) {
	_, err := execute(t, "watch", filepath.Join("testdata", "good", "models.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWatchRecordsWhenModelHashChanges(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer st.Close()

	s := &watchSession{opts: &WatchOptions{}, logger: (&RootOptions{}).logger(), st: st}
	ctx := t.Context()
	save := func(name, formula string) {
		results := CompileModels([]config.Model{{Name: name, Formula: formula, Source: "m.yaml"}}, nil, s.logger)
		require.NoError(t, results[0].Err)
		s.record(ctx, results[0])
	}

	const a, b = "y ~ C(A, Gamma())", "y ~ C(B, Gamma())"
	save("CDR_m", a)
	save("CDR_m", a)
	save("CDR_m", b)
	save("CDR_m", a)
	save("CDR_twin", a)
	save("CDR_m", a)
	save("CDR_twin", a)

	records, err := st.ListRecords(ctx, "")
	require.NoError(t, err)
	var got []string
	for _, r := range records {
		got = append(got, r.Model+" "+r.Spec.Formula)
	}
	assert.Equal(t, []string{
		"CDR_m " + a,
		"CDR_m " + b,
		"CDR_m " + a,
		"CDR_twin " + a,
	}, got)
}
