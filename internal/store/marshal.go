package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/cdrc/internal/ir"
)

// ErrCorruptRecord reports a stored spec that no longer matches its hash
// or cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

// Record is one stored compilation.
type Record struct {
	ID              string // UUIDv7
	Seq             int64  // assigned by WriteRecord
	Model           string
	ConfigPath      string
	Description     string
	Spec            *ir.ModelSpec
	SpecHash        string
	CompilerVersion string
	IRVersion       string
}

// NewRecord prepares a record for a compiled spec. The id is a fresh
// UUIDv7, so ids sort by creation time.
func NewRecord(model, configPath, description string, spec *ir.ModelSpec) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("new record id: %w", err)
	}
	hash, err := ir.SpecHash(spec)
	if err != nil {
		return Record{}, fmt.Errorf("new record: %w", err)
	}
	return Record{
		ID:              id.String(),
		Model:           model,
		ConfigPath:      configPath,
		Description:     description,
		Spec:            spec,
		SpecHash:        hash,
		CompilerVersion: ir.CompilerVersion,
		IRVersion:       spec.IRVersion,
	}, nil
}

// marshalSpec converts a spec to canonical JSON TEXT for storage.
func marshalSpec(spec *ir.ModelSpec) (string, error) {
	data, err := ir.MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("marshal spec: %w", err)
	}
	return string(data), nil
}

// unmarshalSpec decodes stored JSON and checks it against the stored hash.
func unmarshalSpec(id, data, hash string) (*ir.ModelSpec, error) {
	spec, err := ir.UnmarshalModelSpec([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w: %v", id, ErrCorruptRecord, err)
	}
	got, err := ir.SpecHash(spec)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w: %v", id, ErrCorruptRecord, err)
	}
	if got != hash {
		return nil, fmt.Errorf("record %s: %w: spec hash %s, stored %s", id, ErrCorruptRecord, got, hash)
	}
	return spec, nil
}
