package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password. The message must stay identical for both cases.
	ErrInvalidCredentials = errors.New("Invalid email or password.")

	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUserGone     = errors.New("user no longer exists")

	// ErrUnauthorized is the single outcome the authorizer reports, whatever
	// the underlying token or lookup failure was.
	ErrUnauthorized = errors.New("unauthorized")
)

// Identity fields that can collide on create.
const (
	FieldEmail    = "email"
	FieldUsername = "username"
)

// DuplicateIdentityError reports which unique field collided on create.
// Email wins when both collide.
type DuplicateIdentityError struct {
	Field string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("A user with this %s already exists.", e.Field)
}

// ConfigurationError is a missing or invalid startup setting. It is fatal.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
