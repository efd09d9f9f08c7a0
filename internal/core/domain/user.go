package domain

import (
	"strings"
	"time"
)

// User is a registered identity. PasswordHash is part of the record but is
// never rendered; the HTTP layer projects users through its own response type.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenClaim is the only identity state carried inside a bearer token.
type TokenClaim struct {
	UserID string
	Email  string
}

// NormalizeEmail lowercases and trims an email before any lookup or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims a username. Case is preserved.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
