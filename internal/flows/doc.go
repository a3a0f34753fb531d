// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunResetPassword, ...) accepts a
// typed dependency struct of collaborators and hooks, and returns results
// without side effects beyond those dependencies. The Engine owns every
// collaborator and wires them in once at build time.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (errors are injected through [Errors]).
//   - Perform I/O directly. All I/O goes through dependency fields.
package flows
