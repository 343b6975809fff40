// Package protocol groups the delimiter framing primitives.
//
// Ownership boundary:
// - match: incremental byte-pattern matching
// - framer: byte-wise start/end frame extraction and event dispatch
// - frame: outbound frame encoding and payload validation
package protocol
