package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/pkg/metrics"
)

// Authorizer turns a bearer token into a live identity. Every rejection is
// reported as domain.ErrUnauthorized; the cause is only logged and counted.
// Storage failures are returned as-is so they surface as server errors.
type Authorizer struct {
	repo   ports.UserRepository
	tokens ports.TokenIssuer
	audit  ports.AuditRecorder
	logger zerolog.Logger
}

func NewAuthorizer(repo ports.UserRepository, tokens ports.TokenIssuer, audit ports.AuditRecorder, logger zerolog.Logger) *Authorizer {
	if audit == nil {
		audit = discardRecorder{}
	}
	return &Authorizer{repo: repo, tokens: tokens, audit: audit, logger: logger}
}

func (a *Authorizer) Authorize(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Authorizer.Authorize")
	defer span.End()

	if strings.TrimSpace(token) == "" {
		return nil, a.reject("missing_token", domain.TokenClaim{}, nil)
	}

	claim, err := a.tokens.Verify(token)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, domain.ErrExpiredToken) {
			reason = "expired_token"
		}
		return nil, a.reject(reason, domain.TokenClaim{}, err)
	}

	user, err := a.repo.FindByID(ctx, claim.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, a.reject("user_gone", claim, domain.ErrUserGone)
		}
		metrics.AuthorizationsTotal.WithLabelValues("error").Inc()
		return nil, spanError(span, fmt.Errorf("authorize: %w", err))
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	metrics.AuthorizationsTotal.WithLabelValues("allowed").Inc()
	return user, nil
}

func (a *Authorizer) reject(reason string, claim domain.TokenClaim, cause error) error {
	metrics.AuthorizationsTotal.WithLabelValues(reason).Inc()
	a.audit.Record(newEvent(domain.EventAuthorizeRejected, claim.UserID, claim.Email, reason))
	a.logger.Debug().Err(cause).Str("reason", reason).Msg("authorization rejected")
	return domain.ErrUnauthorized
}
