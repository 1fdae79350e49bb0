// Package authflow implements the account lifecycle of a web application:
// registration with email verification, login and logout with access and
// refresh tokens, token refresh, and password reset.
//
// Users are either admins or plain users. [CheckPermissions] lets a user
// act on its own resources and an admin on anyone's.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. Storage, password hashing and email delivery are
// supplied through the [UserStore], [SessionStore], [PasswordHasher] and
// [Notifier] interfaces; the session, password, userstore and notify
// packages provide implementations.
//
// # Errors
//
// Workflow failures are [*Error] values classified by [Kind]. Their
// Message is safe to return to clients. Any other error is an
// infrastructure failure and should be reported as a generic server error.
//
// # Tokens
//
// Access tokens are short-lived JWTs carrying a [TokenUser]. Refresh,
// verification and reset tokens are opaque random hex strings. Refresh and
// reset tokens are stored only as SHA-256 digests.
package authflow
