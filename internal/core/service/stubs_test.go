package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/infrastructure/password"
	"github.com/99minutos/identity-service/internal/infrastructure/token"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	nextID  int
	findErr error // if set, FindByEmail/FindByID return this error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// Create mirrors the real stores: one lookup over both fields, email reported first.
func (r *stubUserRepo) Create(_ context.Context, email, username, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	usernameTaken := false
	for _, u := range r.byID {
		if u.Email == email {
			return nil, &domain.DuplicateIdentityError{Field: domain.FieldEmail}
		}
		if u.Username == username {
			usernameTaken = true
		}
	}
	if usernameTaken {
		return nil, &domain.DuplicateIdentityError{Field: domain.FieldUsername}
	}

	r.nextID++
	now := time.Now().UTC()
	u := &domain.User{
		ID:           fmt.Sprintf("user-%d", r.nextID),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[u.ID] = u
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *stubUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// ---------------------------------------------------------------------------
// Hasher spy and audit recorder
// ---------------------------------------------------------------------------

type countingHasher struct {
	inner    *password.BcryptHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Hash(pw string) (string, error) { return h.inner.Hash(pw) }

func (h *countingHasher) Verify(pw, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.inner.Verify(pw, hash)
}

func (h *countingHasher) verifyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Record(e domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) last() domain.AuthEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return domain.AuthEvent{}
	}
	return a.events[len(a.events)-1]
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	repo   *stubUserRepo
	hasher *countingHasher
	tokens *token.Issuer
	audit  *recordingAudit
	auth   *AuthService
	authz  *Authorizer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bc, err := password.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	f := &fixture{
		repo:   newStubUserRepo(),
		hasher: &countingHasher{inner: bc},
		audit:  &recordingAudit{},
		now:    time.Now(),
	}
	f.tokens, err = token.NewIssuer("secret", time.Hour, token.WithClock(func() time.Time { return f.now }))
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	f.auth = NewAuthService(f.repo, f.hasher, f.tokens, f.audit, zerolog.Nop())
	f.authz = NewAuthorizer(f.repo, f.tokens, f.audit, zerolog.Nop())
	return f
}

var errStorage = errors.New("connection refused")
