package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/pkg/metrics"
)

// dummyPassword is hashed once and verified against on the unknown-email login
// path so that both failure paths pay for one hash comparison.
const dummyPassword = "dummy-Passw0rd-for-timing"

// AuthService implements registration and login.
type AuthService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	audit  ports.AuditRecorder
	logger zerolog.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	audit ports.AuditRecorder,
	logger zerolog.Logger,
) *AuthService {
	if audit == nil {
		audit = discardRecorder{}
	}
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		audit:  audit,
		logger: logger,
	}
}

// Register hashes the password, persists the identity and issues a token.
// A *domain.DuplicateIdentityError from the store is returned unchanged.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (string, *domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	hash, err := s.hash(password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return "", nil, spanError(span, fmt.Errorf("register: %w", err))
	}

	email = domain.NormalizeEmail(email)
	username = domain.NormalizeUsername(username)

	user, err := s.repo.Create(ctx, email, username, hash)
	if err != nil {
		var dup *domain.DuplicateIdentityError
		if errors.As(err, &dup) {
			metrics.RegistrationsTotal.WithLabelValues("duplicate_" + dup.Field).Inc()
			s.audit.Record(newEvent(domain.EventRegisterConflict, "", email, dup.Field))
			s.logger.Info().Str("field", dup.Field).Msg("registration conflict")
			return "", nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return "", nil, spanError(span, fmt.Errorf("register: %w", err))
	}

	token, err := s.issue(user)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return "", nil, spanError(span, fmt.Errorf("register: %w", err))
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	s.audit.Record(newEvent(domain.EventRegistered, user.ID, user.Email, ""))
	s.logger.Info().Str("user_id", user.ID).Msg("user registered")

	return token, user, nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password both fail with domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = domain.NormalizeEmail(email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, spanError(span, fmt.Errorf("login: %w", err))
	}

	if user == nil {
		s.verifyDummy(password)
		return "", nil, s.rejectLogin(email, "", "unknown_email")
	}
	if !s.verify(password, user.PasswordHash) {
		return "", nil, s.rejectLogin(email, user.ID, "wrong_password")
	}

	token, err := s.issue(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, spanError(span, fmt.Errorf("login: %w", err))
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.audit.Record(newEvent(domain.EventLoginSucceeded, user.ID, user.Email, ""))

	return token, user, nil
}

// rejectLogin records the internal reason and returns the uniform error.
func (s *AuthService) rejectLogin(email, userID, reason string) error {
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	s.audit.Record(newEvent(domain.EventLoginFailed, userID, email, reason))
	s.logger.Debug().Str("reason", reason).Msg("login rejected")
	return domain.ErrInvalidCredentials
}

func (s *AuthService) issue(user *domain.User) (string, error) {
	return s.tokens.Issue(domain.TokenClaim{UserID: user.ID, Email: user.Email})
}

func (s *AuthService) hash(password string) (string, error) {
	start := time.Now()
	defer func() { metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds()) }()
	return s.hasher.Hash(password)
}

func (s *AuthService) verify(password, hash string) bool {
	start := time.Now()
	defer func() { metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds()) }()
	return s.hasher.Verify(password, hash)
}

// dummy returns the cached dummy hash, preparing it on first use. A failed
// preparation is retried on the next call.
func (s *AuthService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	hash, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prepare dummy hash")
		return ""
	}
	s.dummyHash = hash
	return hash
}

func (s *AuthService) verifyDummy(password string) {
	hash := s.dummy()

	start := time.Now()
	_ = s.hasher.Verify(password, hash)
	metrics.PasswordHashDuration.WithLabelValues("verify_dummy").Observe(time.Since(start).Seconds())
}
