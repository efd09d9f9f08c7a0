package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func TestAuthService_Register_Success(t *testing.T) {
	f := newFixture(t)

	token, user, err := f.auth.Register(context.Background(), "test@example.com", "testuser", "Password1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user == nil || user.ID == "" {
		t.Fatalf("expected persisted user, got %+v", user)
	}
	if user.Username != "testuser" {
		t.Fatalf("unexpected username: %s", user.Username)
	}
	if user.PasswordHash == "" || user.PasswordHash == "Password1" {
		t.Fatalf("expected password to be hashed, got %q", user.PasswordHash)
	}
	if !f.hasher.Verify("Password1", user.PasswordHash) {
		t.Fatalf("stored hash does not match password")
	}

	claim, err := f.tokens.Verify(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claim.UserID != user.ID || claim.Email != "test@example.com" {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if ev := f.audit.last(); ev.Type != domain.EventRegistered || ev.UserID != user.ID {
		t.Fatalf("expected registered audit event, got %+v", ev)
	}
}

func TestAuthService_Register_Normalizes(t *testing.T) {
	f := newFixture(t)

	_, user, err := f.auth.Register(context.Background(), "  Mixed.Case@Example.COM ", "  Bob_99 ", "Password1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "mixed.case@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Username != "Bob_99" {
		t.Fatalf("username should be trimmed but keep case: %q", user.Username)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.auth.Register(ctx, "bob@example.com", "bob", "Password1"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, _, err := f.auth.Register(ctx, "BOB@example.com", "bobby", "Password2")
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
	if dup.Field != domain.FieldEmail {
		t.Fatalf("expected email collision, got %s", dup.Field)
	}
	if err.Error() != "A user with this email already exists." {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if ev := f.audit.last(); ev.Type != domain.EventRegisterConflict || ev.Reason != domain.FieldEmail {
		t.Fatalf("expected conflict audit event, got %+v", ev)
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, _ = f.auth.Register(ctx, "bob@example.com", "bob", "Password1")
	_, _, err := f.auth.Register(ctx, "other@example.com", "bob", "Password1")

	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) || dup.Field != domain.FieldUsername {
		t.Fatalf("expected username collision, got %v", err)
	}
}

func TestAuthService_Register_BothCollideReportsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, _ = f.auth.Register(ctx, "first@example.com", "first", "Password1")
	_, _, _ = f.auth.Register(ctx, "second@example.com", "second", "Password1")

	_, _, err := f.auth.Register(ctx, "second@example.com", "first", "Password1")
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) || dup.Field != domain.FieldEmail {
		t.Fatalf("expected email to win, got %v", err)
	}
}

func TestAuthService_Register_StorageErrorPropagates(t *testing.T) {
	f := newFixture(t)
	repo := &failingCreateRepo{stubUserRepo: f.repo}
	svc := NewAuthService(repo, f.hasher, f.tokens, nil, f.auth.logger)

	_, _, err := svc.Register(context.Background(), "a@b.com", "abc", "Password1")
	if !errors.Is(err, errStorage) {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}
	var dup *domain.DuplicateIdentityError
	if errors.As(err, &dup) || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("storage failure must not be masked: %v", err)
	}
}

type failingCreateRepo struct{ *stubUserRepo }

func (r *failingCreateRepo) Create(context.Context, string, string, string) (*domain.User, error) {
	return nil, errStorage
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, registered, err := f.auth.Register(ctx, "carol@example.com", "carol", "S3cretPass")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := f.auth.Login(ctx, "carol@example.com", "S3cretPass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user == nil || user.ID != registered.ID {
		t.Fatalf("unexpected user: %+v", user)
	}

	resolved, err := f.authz.Authorize(ctx, token)
	if err != nil {
		t.Fatalf("token from login does not authorize: %v", err)
	}
	if resolved.ID != registered.ID {
		t.Fatalf("claim resolved to %s, want %s", resolved.ID, registered.ID)
	}
}

func TestAuthService_Login_EmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.auth.Register(ctx, "A@B.com", "ab_user", "Password1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "a@b.com", "Password1"); err != nil {
		t.Fatalf("login with lowercased email failed: %v", err)
	}
	if _, _, err := f.auth.Login(ctx, " A@B.COM ", "Password1"); err != nil {
		t.Fatalf("login with padded uppercase email failed: %v", err)
	}
}

func TestAuthService_Login_UniformFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, _ = f.auth.Register(ctx, "dave@example.com", "dave", "GoodPass1")

	_, _, wrongPassword := f.auth.Login(ctx, "dave@example.com", "BadPass1")
	_, _, unknownEmail := f.auth.Login(ctx, "ghost@example.com", "GoodPass1")

	for name, err := range map[string]error{"wrong password": wrongPassword, "unknown email": unknownEmail} {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
		if err.Error() != "Invalid email or password." {
			t.Fatalf("%s: unexpected message %q", name, err.Error())
		}
	}
	if wrongPassword != unknownEmail {
		t.Fatalf("both failures must be the same error value")
	}
}

func TestAuthService_Login_UnknownEmailStillVerifies(t *testing.T) {
	f := newFixture(t)

	before := f.hasher.verifyCount()
	if _, _, err := f.auth.Login(context.Background(), "nobody@example.com", "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.hasher.verifyCount() != before+1 {
		t.Fatalf("expected one dummy verification on the unknown-email path")
	}
	if ev := f.audit.last(); ev.Type != domain.EventLoginFailed || ev.Reason != "unknown_email" {
		t.Fatalf("expected login_failed audit event, got %+v", ev)
	}
}

func TestAuthService_LongPasswordsRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		email, username, password string
	}{
		{"ascii@example.com", "ascii_user", strings.Repeat("a", 78) + "P1"},
		{"multi@example.com", "multi_user", strings.Repeat("ü", 40) + "P1"},
	}
	for _, tc := range cases {
		if _, _, err := f.auth.Register(ctx, tc.email, tc.username, tc.password); err != nil {
			t.Fatalf("register %s (%d bytes): %v", tc.username, len(tc.password), err)
		}
		if _, _, err := f.auth.Login(ctx, tc.email, tc.password); err != nil {
			t.Fatalf("login %s: %v", tc.username, err)
		}
		if _, _, err := f.auth.Login(ctx, tc.email, "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("login %s with wrong password: expected ErrInvalidCredentials, got %v", tc.username, err)
		}
	}
}

// flakyHasher fails its first Hash call.
type flakyHasher struct {
	*countingHasher
	hashes int
}

func (h *flakyHasher) Hash(pw string) (string, error) {
	h.hashes++
	if h.hashes == 1 {
		return "", errors.New("entropy unavailable")
	}
	return h.countingHasher.Hash(pw)
}

func TestAuthService_DummyHashRetriedAfterFailure(t *testing.T) {
	f := newFixture(t)
	hasher := &flakyHasher{countingHasher: f.hasher}
	svc := NewAuthService(f.repo, hasher, f.tokens, f.audit, zerolog.Nop())
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "ghost@example.com", "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if svc.dummyHash != "" {
		t.Fatalf("expected no dummy hash after failed preparation, got %q", svc.dummyHash)
	}

	if _, _, err := svc.Login(ctx, "ghost@example.com", "Password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if svc.dummyHash == "" || hasher.hashes != 2 {
		t.Fatalf("expected dummy hash prepared on retry, hashes=%d", hasher.hashes)
	}

	_, _, _ = svc.Login(ctx, "ghost@example.com", "Password1")
	if hasher.hashes != 2 {
		t.Fatalf("expected cached dummy hash, hashes=%d", hasher.hashes)
	}
}

func TestAuthService_Login_StorageErrorIsNotMasked(t *testing.T) {
	f := newFixture(t)
	f.repo.findErr = errStorage

	_, _, err := f.auth.Login(context.Background(), "a@b.com", "Password1")
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("storage failure reported as invalid credentials")
	}
	if !errors.Is(err, errStorage) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestAuthService_ExampleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, user, err := f.auth.Register(ctx, "test@example.com", "testuser", "Password1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "testuser" || user.PasswordHash == "Password1" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, _, err := f.auth.Login(ctx, "TEST@EXAMPLE.COM", "Password1"); err != nil {
		t.Fatalf("login with uppercase email: %v", err)
	}

	if _, _, err := f.auth.Login(ctx, "TEST@EXAMPLE.COM", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected uniform failure, got %v", err)
	}
}
