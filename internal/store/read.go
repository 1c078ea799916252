package store

import (
	"context"
	"database/sql"
	"fmt"
)

const recordColumns = `id, seq, model, config_path, description, spec, spec_hash, compiler_version, ir_version`

// ReadRecord retrieves a single record by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRecord(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	return scanRecord(row)
}

// ListRecords returns the records of one model, or of every model when
// model is empty, ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRecords(ctx context.Context, model string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// LatestByHash returns the most recent record with the given spec hash.
// Returns sql.ErrNoRows if no record has it.
func (s *Store) LatestByHash(ctx context.Context, hash string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE spec_hash = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, hash)
	return scanRecord(row)
}

// LatestByModel returns the most recent record of model.
// Returns sql.ErrNoRows if the model has none.
func (s *Store) LatestByModel(ctx context.Context, model string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE model = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, model)
	return scanRecord(row)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec      Record
		specJSON string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Model,
		&rec.ConfigPath,
		&rec.Description,
		&specJSON,
		&rec.SpecHash,
		&rec.CompilerVersion,
		&rec.IRVersion,
	)
	if err == sql.ErrNoRows {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.Spec, err = unmarshalSpec(rec.ID, specJSON, rec.SpecHash)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
