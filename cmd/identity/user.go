package identity

import (
	"context"
	"time"
)

// Role is the coarse authorization level attached to a user. It is embedded
// into issued tokens at login; a role change takes effect at the next login.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User is the canonical security principal.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      Role

	// PasswordHash is the PHC-formatted argon2id hash. The plain password
	// is never stored.
	PasswordHash string

	CreatedAt time.Time
}

// CreateUserInput describes a registration request. Username and Email are
// both required and must be unique after normalization.
type CreateUserInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string

	// PasswordHash is produced by the caller; this package never hashes.
	PasswordHash string

	Role Role
	Now  time.Time
}

// Store is the user persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// ResolveByContact looks a user up by username or email. The contact is
	// normalized before matching; which field it matches is the store's
	// concern, callers just present what the client typed.
	ResolveByContact(ctx context.Context, contact string) (User, error)

	GetByID(ctx context.Context, id string) (User, error)

	// UpdatePassword replaces the stored hash. Callers revoke sessions
	// separately; this store knows nothing about sessions.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
