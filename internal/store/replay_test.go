package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

func TestReplay_Clean(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, f := range []string{baseFormula, lmFormula} {
		_, err := s.WriteRecord(ctx, createTestRecord(t, "m", f))
		require.NoError(t, err)
	}

	report, err := s.Replay(ctx, "", compiler.Compile)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.True(t, report.Clean())
}

func TestReplay_ReportsDrift(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base, err := s.WriteRecord(ctx, createTestRecord(t, "CDR_base", baseFormula))
	require.NoError(t, err)
	lm, err := s.WriteRecord(ctx, createTestRecord(t, "LM_base", lmFormula))
	require.NoError(t, err)

	// A compiler that drops the intercept for one formula and rejects the other.
	broken := errors.New("boom")
	compile := func(formula string) (*ir.ModelSpec, error) {
		if formula == lmFormula {
			return nil, broken
		}
		spec, err := compiler.Compile(formula)
		if err != nil {
			return nil, err
		}
		spec.Intercept = false
		return spec, nil
	}

	report, err := s.Replay(ctx, "", compile)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Drifts, 2)

	assert.Equal(t, base.ID, report.Drifts[0].Record.ID)
	assert.NotEmpty(t, report.Drifts[0].Hash)
	assert.NotEqual(t, base.SpecHash, report.Drifts[0].Hash)
	assert.NoError(t, report.Drifts[0].Err)

	assert.Equal(t, lm.ID, report.Drifts[1].Record.ID)
	assert.ErrorIs(t, report.Drifts[1].Err, broken)
}

func TestReplay_FiltersByModel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRecord(ctx, createTestRecord(t, "CDR_base", baseFormula))
	require.NoError(t, err)
	_, err = s.WriteRecord(ctx, createTestRecord(t, "LM_base", lmFormula))
	require.NoError(t, err)

	report, err := s.Replay(ctx, "LM_base", compiler.Compile)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
}

func TestReplay_Cancelled(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteRecord(context.Background(), createTestRecord(t, "m", lmFormula))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Replay(ctx, "", compiler.Compile)
	assert.ErrorIs(t, err, context.Canceled)
}
