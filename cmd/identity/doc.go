// Package identity holds the user accounts of the streaming service.
//
// It resolves login contacts (username or email) to stored principals and
// owns registration, including uniqueness of normalized contacts. Password
// hashing lives in cmd/security/password; session lifecycle lives in
// cmd/internal/auth/session. This package never sees a token.
package identity
