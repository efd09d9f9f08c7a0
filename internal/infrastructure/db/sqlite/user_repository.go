package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL CHECK (password_hash <> ''),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const selectUser = `SELECT id, email, username, password_hash, created_at, updated_at FROM users`

type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Init creates the users table.
func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Create looks for either colliding field in one query, email matches first,
// then inserts. The UNIQUE columns reject any create that races past the check.
func (r *UserRepository) Create(ctx context.Context, email, username, passwordHash string) (*domain.User, error) {
	var existingEmail string
	err := r.db.QueryRowContext(ctx, `
SELECT email FROM users
WHERE email = ? OR username = ?
ORDER BY (email = ?) DESC
LIMIT 1`,
		email, username, email,
	).Scan(&existingEmail)
	switch {
	case err == nil:
		if existingEmail == email {
			return nil, &domain.DuplicateIdentityError{Field: domain.FieldEmail}
		}
		return nil, &domain.DuplicateIdentityError{Field: domain.FieldUsername}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check user collision: %w", err)
	}

	now := r.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return nil, &domain.DuplicateIdentityError{Field: field}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and
// which identity field it hit. Email wins when the message is ambiguous.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	unique := false
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			unique = true
		}
	}
	msg := strings.ToLower(err.Error())
	if !unique && !strings.Contains(msg, "unique constraint failed") {
		return "", false
	}
	if strings.Contains(msg, "users.username") && !strings.Contains(msg, "users.email") {
		return domain.FieldUsername, true
	}
	return domain.FieldEmail, true
}
