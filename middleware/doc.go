// Package middleware adapts authflow.Engine to net/http.
//
// Authenticate accepts the access token from the accessToken cookie or an
// Authorization bearer header. When the access token is missing or no
// longer valid it falls back to the refreshToken cookie, asks the engine
// for a new access token and re-attaches both cookies. The authenticated
// user is stored in the request context.
//
// AuthorizeRoles runs after Authenticate and answers 403 to users whose
// role is not listed. Token checks themselves are left to the engine.
package middleware
