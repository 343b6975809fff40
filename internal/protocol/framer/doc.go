// Package framer slices an unstructured byte stream into delimited frames.
//
// A Framer owns one fixed-capacity buffer and two delimiter matchers:
//
// - a start condition that must be seen before bytes are buffered
//
// - an end condition that completes the buffered frame
//
// Either condition may be empty. Bytes are fed one at a time (AppendByte) or
// in batches (Append, Write) and every event is dispatched synchronously
// before the call returns. Payload slices handed to handlers alias the
// internal buffer and are only valid for the duration of the call.
//
// A Framer is not safe for concurrent use. Handlers must not feed bytes back
// into the Framer that invoked them.
package framer
