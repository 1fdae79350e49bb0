// Package session persists refresh-token sessions in Redis.
//
// A session is created at login and destroyed at logout. Only the SHA-256
// digest of the refresh token is used as a key; the token itself is never
// stored. Every session expires after the store TTL.
//
// The package does not interpret access tokens or enforce login policy.
package session
