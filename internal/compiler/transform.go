package compiler

// transforms are the wrapper functions a variable reference may carry.
var transforms = map[string]bool{
	"log":   true,
	"log1p": true,
	"exp":   true,
	"z":     true, // z-score
	"c":     true, // center
	"s":     true, // scale
}

// factorWrappers request categorical auto-expansion, which is not implemented.
var factorWrappers = map[string]bool{
	"factor":    true,
	"as.factor": true,
}

// checkTransform classifies a call name found where a variable is expected.
func checkTransform(tok Token) error {
	switch {
	case transforms[tok.Text]:
		return nil
	case factorWrappers[tok.Text]:
		return newError(ErrUnsupported, "var_expr", tok.Span, "categorical factor expansion %s(...) is not supported", tok.Text)
	case tok.Text == "C":
		return newError(ErrSyntax, "var_expr", tok.Span, "convolution C(...) cannot be nested inside a variable expression")
	}
	if _, ok := LookupFamily(tok.Text); ok {
		return newError(ErrSyntax, "var_expr", tok.Span, "IRF %s(...) found where a variable was expected", tok.Text)
	}
	return newError(ErrUnknownTransform, "var_expr", tok.Span, "unknown transform %q (expected one of log, log1p, exp, z, c, s)", tok.Text)
}
