// Package jwt issues and decodes the compact signed tokens used for access,
// refresh, and single-use purposes.
//
// Every token is signed with one shared HMAC secret and carries sub, iat,
// exp, jti, and a type discriminator. Decoding checks signature and expiry
// only; revocation is the caller's concern.
package jwt
