// Package internal holds helpers private to authflow: opaque token
// generation and the digests stored in place of bearer secrets.
package internal
