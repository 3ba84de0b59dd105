// Package canon provides RFC 8785 canonical JSON and domain-separated
// SHA-256 digests.
//
// Outcome evidence, golden snapshots and stored verdicts all pass through
// Marshal so that the same observation always serializes to the same bytes.
// Only strings, integers, booleans, arrays and objects are representable;
// floats and null are rejected.
package canon
