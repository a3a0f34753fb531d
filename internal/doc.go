// Package internal contains helpers that are private to this module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - errutil: error logging helpers and oops assertions for tests
//   - flows: flow orchestrators behind every Engine operation
//   - httpapi: chi router exposing the Engine over JSON/HTTP
//   - limiters: record-based account lockout guard
//   - logging: slog setup with trace correlation
//   - metrics: lock-free counters and the authorize latency histogram
//   - observability: Sentry initialisation and panic recovery
//   - rate: Redis-backed fixed-window rate limiter
package internal
