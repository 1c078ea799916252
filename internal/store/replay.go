package store

import (
	"context"
	"fmt"

	"github.com/roach88/cdrc/internal/ir"
)

// CompileFunc compiles one formula.
type CompileFunc func(formula string) (*ir.ModelSpec, error)

// Drift is a stored record whose formula no longer compiles to the stored spec.
type Drift struct {
	Record Record
	Hash   string // hash of the fresh compilation, empty when it failed
	Err    error  // compile error, nil when the formula still compiles
}

// ReplayReport summarizes a replay over stored records.
type ReplayReport struct {
	Checked int
	Drifts  []Drift
}

// Clean reports whether every checked record reproduced its spec.
func (r ReplayReport) Clean() bool {
	return len(r.Drifts) == 0
}

// Replay recompiles the formula of every record of model (all models when
// empty) and compares the result with the stored spec hash. Records are
// visited in seq order, so reports are deterministic.
func (s *Store) Replay(ctx context.Context, model string, compile CompileFunc) (ReplayReport, error) {
	records, err := s.ListRecords(ctx, model)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	var report ReplayReport
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("replay: %w", err)
		}
		report.Checked++

		spec, err := compile(rec.Spec.Formula)
		if err != nil {
			report.Drifts = append(report.Drifts, Drift{Record: rec, Err: err})
			continue
		}
		hash, err := ir.SpecHash(spec)
		if err != nil {
			return report, fmt.Errorf("replay %s: %w", rec.ID, err)
		}
		if hash != rec.SpecHash {
			report.Drifts = append(report.Drifts, Drift{Record: rec, Hash: hash})
		}
	}
	return report, nil
}
