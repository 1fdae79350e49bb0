// Package jwt issues and verifies the short-lived access tokens handed out
// at login. Refresh tokens are opaque and live in the session package.
package jwt
