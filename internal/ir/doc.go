// Package ir provides the compiled model specification consumed by the
// fitting engine, together with its canonical serialization.
//
// This package contains type definitions and encoding only. The compiler
// produces ir values; the store, CLI and harness consume them. ir imports
// nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - literal IRF parameter values keep their source text
//   - Term order and interaction order are preserved exactly as written
//   - All JSON tags use snake_case
//   - A ModelSpec is immutable once the compiler returns it
package ir
