// Package password hashes user passwords with argon2id.
//
// Digests use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// The package enforces presence only. It never logs or stores plaintext.
package password
