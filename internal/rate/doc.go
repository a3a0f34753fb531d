// Package rate provides a Redis-backed fixed-window counter used to throttle
// unauthenticated HTTP endpoints.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Keys are <prefix>:<caller key>;
// callers typically use "<route>:<client ip>".
//
// # What this package must NOT do
//
//   - Decide what to do when a limit is hit (the HTTP middleware does).
//   - Be imported outside this module.
package rate
