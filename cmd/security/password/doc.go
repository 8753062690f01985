// Package password provides password hashing and policy validation.
//
// Hashes are Argon2id in the PHC encoded string format. Hash strings are
// treated as untrusted input during Verify: decoding is strict and
// verification refuses hashes whose parameters exceed reasonable bounds.
package password
