package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// LogSink writes audit events as structured log lines.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, event domain.AuthEvent) error {
	ev := s.log.Info()
	if event.Type == domain.EventLoginFailed || event.Type == domain.EventAuthorizeRejected {
		ev = s.log.Warn()
	}
	ev.Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Time("occurred_at", event.OccurredAt)
	if event.UserID != "" {
		ev.Str("user_id", event.UserID)
	}
	if event.Email != "" {
		ev.Str("email", event.Email)
	}
	if event.Reason != "" {
		ev.Str("reason", event.Reason)
	}
	ev.Msg("auth event")
	return nil
}
