package domain

import "time"

// AuthEventType names an authentication outcome recorded in the audit trail.
type AuthEventType string

const (
	EventRegistered        AuthEventType = "registered"
	EventRegisterConflict  AuthEventType = "register_conflict"
	EventLoginSucceeded    AuthEventType = "login_succeeded"
	EventLoginFailed       AuthEventType = "login_failed"
	EventAuthorizeRejected AuthEventType = "authorize_rejected"
)

// AuthEvent is one audit record. It never carries a password, a hash or a token.
type AuthEvent struct {
	ID         string
	Type       AuthEventType
	UserID     string // empty when no identity was resolved
	Email      string
	Reason     string
	OccurredAt time.Time
}

// ShardKey groups events for the same actor so they are recorded in order.
func (e AuthEvent) ShardKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}
