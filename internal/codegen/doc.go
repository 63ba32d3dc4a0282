// Package codegen turns a parsed command dictionary into the two artifacts
// the expansion pipeline runs against: a machine schema set (per-stem
// canonical argument order, cty types, validation codecs and a command
// factory) and a human-readable declaration text listing every stem
// signature. The schema set is the thing actually invoked at runtime; the
// declaration text is persisted alongside it as documentation.
package codegen
