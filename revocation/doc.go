// Package revocation records tokens and users whose sessions were ended
// before the tokens naturally expired.
//
// # Fail-open
//
// The backing cache is an availability dependency, not a correctness one.
// When it cannot be reached, [Store.IsRevoked] and [Store.IsUserRevoked]
// report "not revoked" and log a warning. A revoked token may therefore be
// accepted during a cache outage until it expires on its own. Writes that
// fail are logged and returned to the caller, who treats them as non-fatal.
//
// # Key layout
//
//   - <prefix>:token:<sha256 of token, hex>: value "1", TTL = remaining token lifetime
//   - <prefix>:user:<user id>: value = unix nanoseconds of revocation, TTL chosen by caller
//
// Entries are never deleted explicitly; they expire.
package revocation
