package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed spec identity.
// Version suffix enables future algorithm migration.
const DomainModelSpec = "cdrc/modelspec/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash computes the content-addressed identity of a compiled spec.
// Two compilations of the same formula hash identically because synthesized
// ids restart for every compilation.
func SpecHash(spec *ModelSpec) (string, error) {
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModelSpec, canonical), nil
}

// MustSpecHash is like SpecHash but panics on error.
// Use only in tests or when the spec came from the compiler.
func MustSpecHash(spec *ModelSpec) string {
	h, err := SpecHash(spec)
	if err != nil {
		panic(err)
	}
	return h
}
