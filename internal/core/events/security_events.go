package events

import (
	"time"

	"github.com/google/uuid"
)

// Security event types published by the authentication workflow.
const (
	TypeLoginFailed    = "auth.login_failed"
	TypeLoginSucceeded = "auth.login_succeeded"
	TypeAccountLocked  = "auth.account_locked"
	TypePasswordReset  = "auth.password_reset"
	TypeUserCreated    = "user.created"
	TypeUserDeleted    = "user.deleted"
)

// NewSecurityEvent builds a bus event for a security-relevant occurrence.
// Payloads must never contain OTP codes, passwords or hashes.
func NewSecurityEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
