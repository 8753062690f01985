package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordTooShort  = errors.New("password too short")
	ErrPasswordTooLong   = errors.New("password too long")
	ErrPasswordTooSimple = errors.New("password must contain a letter, a digit, and a special character")
	ErrInvalidHash       = errors.New("invalid password hash")
)
