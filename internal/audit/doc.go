// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, user, client IP, metadata.
//
// This package owns buffering and delivery. Which events to emit is decided
// by the Engine and the flow functions.
package audit
