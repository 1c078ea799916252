package harness

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
//
// A successful case snapshots the full spec. A failed case snapshots the
// error kind, production, block and span, but not the message text, so
// wording changes do not churn golden files.
func Snapshot(res *Result) ([]byte, error) {
	obj := ir.IRObject{"case": ir.IRString(res.Case.Name)}
	switch {
	case res.Err != nil:
		obj["error"] = errorSnapshot(res.Err)
	case res.Spec != nil:
		obj["spec"] = res.Spec.IR()
	}
	return ir.MarshalCanonical(obj)
}

func errorSnapshot(err error) ir.IRObject {
	var ce *compiler.Error
	if !errors.As(err, &ce) {
		return ir.IRObject{
			"kind":    ir.IRString(compiler.KindName(err)),
			"message": ir.IRString(err.Error()),
		}
	}
	obj := ir.IRObject{
		"kind":       ir.IRString(compiler.KindName(err)),
		"production": ir.IRString(ce.Production),
		"span":       ir.IRArray{ir.IRInt(ce.Span.Start), ir.IRInt(ce.Span.End)},
	}
	if ce.Block != "" {
		obj["block"] = ir.IRString(ce.Block)
	}
	return obj
}

// RunWithGolden runs a case and compares its snapshot against
// testdata/golden/{case.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, c Case) (*Result, error) {
	t.Helper()

	result := Run(c)
	if err := AssertGolden(t, c.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file
// without re-running the case.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
