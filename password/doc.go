// Package password hashes and verifies passwords and enforces the strength
// policy for new ones.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy bcrypt hashes ($2a$, $2b$, $2y$) still verify. [Hasher.NeedsUpgrade]
// reports true for them and for Argon2id hashes produced with weaker
// parameters, so callers can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Log plaintext passwords or hash parameters at runtime.
package password
