// Package sqlt compiles declarative query specifications into validated,
// dialect-correct, positionally parameterized SQL together with typed
// access-function signatures.
//
// The compilation pipeline is:
//
//	SQL text → parser (dialect-aware AST)
//	         → scan (placeholder and identifier extraction, validation)
//	         → rewrite (count derivation, pagination injection, renumbering)
//	         → compiler (final SQL + ordered bind list + signature)
//
// The root package holds the error taxonomy shared by every stage. All
// failures are compile-time, fail-fast and deterministic: the same spec
// always fails the same way, and no partially compiled query is ever
// emitted.
//
// For run-time composition, package builder offers a dynamic condition
// builder over the same extractor and validator.
package sqlt
