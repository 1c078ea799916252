package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := t.Context()

	s1, err := Open(path)
	require.NoError(t, err)
	rec, err := s1.WriteRecord(ctx, createTestRecord(t, "CDR_base", baseFormula))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	for range 2 {
		s2, err := Open(path)
		require.NoError(t, err)
		got, err := s2.ReadRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Seq, got.Seq)
		require.NoError(t, s2.Close())
	}
}

func TestOpen_ConnectionSettings(t *testing.T) {
	s := createTestStore(t)

	for _, c := range connSettings {
		got, err := s.pragma(c.pragma)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.pragma)
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s := createTestStore(t)

	v, err := s.userVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	for _, name := range []string{"idx_records_hash", "records_no_update", "records_no_delete"} {
		var found string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE name = ?`, name).Scan(&found)
		assert.NoError(t, err, name)
	}
}

func TestOpen_UpgradesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec(`DROP TRIGGER records_no_update`)
	require.NoError(t, err)
	_, err = s.db.Exec(`DROP TRIGGER records_no_delete`)
	require.NoError(t, err)
	_, err = s.db.Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.userVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	var found string
	assert.NoError(t, s.db.QueryRow(`SELECT name FROM sqlite_master WHERE name = 'records_no_delete'`).Scan(&found))
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "records.db"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "r.db?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate", dsn("r.db"))
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}
