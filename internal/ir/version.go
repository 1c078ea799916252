package ir

// Version constants for IR schema and compiler.
const (
	// IRVersion is the ModelSpec schema version.
	IRVersion = "1"

	// CompilerVersion is the formula compiler version.
	CompilerVersion = "0.1.0"
)
