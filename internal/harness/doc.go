// Package harness runs formula conformance cases.
//
// Cases live in YAML suites. Each case compiles one formula and states
// what the compiled ModelSpec must look like, or which error kind the
// compilation must fail with.
//
// # Suite Format
//
//	name: tying
//	description: "IRF and coefficient tying"
//	cases:
//	  - name: explicit_irf_id
//	    formula: "y ~ C(A, Gamma(irf_id=G)) + C(B, Gamma(irf_id=G))"
//	    expect:
//	      terms: [A, B]
//	      intercept: true
//	      irfs: 1
//	      coefs: 2
//	  - name: shared_random
//	    formula: "y ~ C(A, Gamma()) + (C(A, Gamma()) | subject)"
//	    expect:
//	      groups: [subject]
//	      random:
//	        - group: subject
//	          terms: [A]
//	          ties: [0]
//	  - name: bad_family
//	    formula: "y ~ C(A, Foo())"
//	    expect:
//	      error: unknown_family
//
// # Expectations
//
// Every expectation is optional; only the fields given are checked.
//
//   - error: the compile error kind, as named by compiler.KindName
//   - terms: fixed term names in order, e.g. "A:log(B)"
//   - intercept: the fixed intercept flag
//   - irfs, coefs: registry sizes
//   - groups: grouping factors in first-seen order
//   - random: per-block group, intercept, term names and ties
//
// # Golden Snapshots
//
// RunWithGolden additionally compares the canonical JSON of the result
// with testdata/golden/<case>.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
