package store

import (
	"context"
	"fmt"
)

// WriteRecord appends a record and returns it with its assigned seq.
// The spec is serialized to canonical JSON per RFC 8785. Writing the same
// id twice is a no-op that returns the stored seq.
func (s *Store) WriteRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.Spec == nil {
		return Record{}, fmt.Errorf("write record: nil spec")
	}
	specJSON, err := marshalSpec(rec.Spec)
	if err != nil {
		return Record{}, fmt.Errorf("write record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("write record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM records`).Scan(&seq); err != nil {
		return Record{}, fmt.Errorf("write record: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO records
		(id, seq, model, config_path, description, formula, spec, spec_hash, compiler_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		seq,
		rec.Model,
		rec.ConfigPath,
		rec.Description,
		rec.Spec.Formula,
		specJSON,
		rec.SpecHash,
		rec.CompilerVersion,
		rec.IRVersion,
	)
	if err != nil {
		return Record{}, fmt.Errorf("write record: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Record{}, fmt.Errorf("write record: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already stored - report the existing seq
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM records WHERE id = ?`, rec.ID).Scan(&seq); err != nil {
			return Record{}, fmt.Errorf("write record: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("write record: commit: %w", err)
	}
	rec.Seq = seq
	return rec, nil
}
