// Package auth resolves who is calling: the admin, a pseudonymous visitor or nobody.
//
// # Identities
//
// There is exactly one admin, authenticated with the configured password, and any
// number of visitors who pick a display name and avatar without a password. Both
// hold an opaque token in a cookie that maps to a row of the sessions table.
//
// # Resolution
//
// Resolver.Resolve looks at the admin token first and the visitor token second.
// A valid admin session always wins, so a caller is never both. Expired rows met
// on the way are deleted best-effort; there is no background sweep.
//
// # Middleware
//
//   - Middleware resolves the identity once per request and stores it in fiber.Locals
//   - RequireAdmin and RequireAuthenticated guard routes with uniform 401 bodies
//   - FromContext returns the resolved identity inside handlers
//
// # Admin password
//
// PasswordChecker compares against an argon2id hash in constant time and sleeps a
// fixed delay after every mismatch.
package auth
