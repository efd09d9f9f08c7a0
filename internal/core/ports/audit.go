package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// AuditRecorder accepts authentication events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}

// AuditSink persists or emits a single audit event.
type AuditSink interface {
	Write(ctx context.Context, event domain.AuthEvent) error
}
