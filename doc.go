// Package auth is the authentication and session-security core of the yoga
// practice tracker: credential verification, token issuance and validation,
// brute-force lockout, token revocation and the single-use password reset and
// email verification flows.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// auth is the public surface. It exposes [Engine], [Builder], [Config], the
// error taxonomy and value types. Flow orchestration, lockout arithmetic,
// audit dispatch and counters live under internal/ and are never exported.
// Leaf capabilities live in their own packages: password (hashing and
// strength policy), jwt (token codec), revocation (fail-open revocation
// store), account (user record and store contract) and mailer.
//
// # State
//
// The Engine keeps no per-user state. Failed-login counters, lock expiry and
// single-use tokens are fields of the user record and are persisted through
// [UserStore]. Revoked tokens and user-wide revocation instants live in the
// revocation cache until they expire on their own.
//
// # Failure model
//
// Failures are returned as values: sentinel errors for simple outcomes and
// [*AccountLockedError] and [*WeakPasswordError] when the caller needs
// detail. Revocation cache outages never fail a request; checks fail open
// and writes are logged.
package auth
