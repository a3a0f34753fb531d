// Package limiters holds the account lockout policy.
//
// [LockoutGuard] works on the counters persisted on the user record
// (failed_login_attempts, account_locked_until) rather than on a separate
// counter store, so a lock survives restarts and is visible to every node
// that shares the user store.
//
// # What this package must NOT do
//
//   - Persist anything. Flow functions save the record.
//   - Decide what error to surface; it only reports state.
package limiters
