package service

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/99minutos/identity-service/internal/core/domain"
)

var tracer = otel.Tracer("github.com/99minutos/identity-service/internal/core/service")

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func newEvent(t domain.AuthEventType, userID, email, reason string) domain.AuthEvent {
	return domain.AuthEvent{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		Email:      email,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

type discardRecorder struct{}

func (discardRecorder) Record(domain.AuthEvent) {}
