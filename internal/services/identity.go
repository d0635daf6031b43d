package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pairlink/pairlink-backend/pkg/utils"
)

// Identity is the external identity provider, seen only through its
// success/failure and error-message contract. The session coordinator is the
// sole consumer.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context, userID string) error
}

// PostgresIdentity implements Identity against the accounts table with
// argon2id password hashes.
type PostgresIdentity struct {
	db *sql.DB
}

func NewPostgresIdentity(db *sql.DB) *PostgresIdentity {
	return &PostgresIdentity{db: db}
}

// SignUp registers a new account and returns its id.
func (p *PostgresIdentity) SignUp(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing string
	err := p.db.QueryRowContext(ctx, "SELECT email FROM accounts WHERE email = $1", email).Scan(&existing)
	if err == nil {
		return "", fmt.Errorf("%w: account with this email already exists", ErrValidation)
	} else if err != sql.ErrNoRows {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", err
	}

	id := uuid.New()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash) VALUES ($1, $2, $3)
	`, id, email, hash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return id.String(), nil
}

// SignIn verifies the credentials and returns the account id.
func (p *PostgresIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id uuid.UUID
	var hash string
	err := p.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM accounts WHERE email = $1 AND is_active = TRUE
	`, email).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: wrong email or password", ErrValidation)
	} else if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	ok, err := utils.VerifyPassword(password, hash)
	if err != nil || !ok {
		return "", fmt.Errorf("%w: wrong email or password", ErrValidation)
	}

	return id.String(), nil
}

// SignOut has nothing to revoke at the provider; session tokens are
// invalidated separately.
func (p *PostgresIdentity) SignOut(ctx context.Context, userID string) error {
	return nil
}
