package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements user persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must not close it.
// Uniqueness of username_norm and email_norm is enforced by schema
// constraints and surfaced as ConflictError here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const userColumns = `
	id, username, first_name, last_name, email, role, password_hash, created_at
`

// CreateUser inserts a new user row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	u, err := buildUser(op, in)
	if err != nil {
		return User{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, username_norm,
			first_name, last_name,
			email, email_norm,
			role, password_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		u.ID, u.Username, NormalizeUsername(u.Username),
		u.FirstName, u.LastName,
		u.Email, NormalizeEmail(u.Email),
		string(u.Role), u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// ResolveByContact matches the normalized contact against username or email.
func (s *PostgresStore) ResolveByContact(ctx context.Context, contact string) (User, error) {
	const op = "identity.ResolveByContact"

	norm := NormalizeUsername(contact)
	if norm == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty contact"}
	}

	return s.scanOne(op, s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username_norm = $1 OR email_norm = $1
	`, norm))
}

// GetByID loads a user row by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	return s.scanOne(op, s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

// UpdatePassword replaces the stored password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	const op = "identity.UpdatePassword"

	if strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty hash"}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

func (s *PostgresStore) scanOne(op string, row pgx.Row) (User, error) {
	var u User
	var role string

	err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&u.Email, &role, &u.PasswordHash, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

// buildUser validates input and fills defaults; shared with the memory store.
func buildUser(op string, in CreateUserInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username is required"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "valid email is required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "unknown role"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return User{
		ID:           uuid.NewString(),
		Username:     username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		Role:         role,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}, nil
}

func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case strings.Contains(c, "username"):
		return "username", true
	case strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
