// Package middleware adapts the authentication engine to net/http.
//
//   - [Guard] requires a Bearer access token and stores the authorized
//     [auth.Principal] in the request context.
//   - [RateLimit] applies a Redis fixed-window budget per client IP and scope.
//   - [RequestContext] copies the client IP and User-Agent into the context so
//     audit events can carry them.
//
// The package translates HTTP semantics into Engine calls. It does not parse
// tokens or make authorization decisions itself.
package middleware
