package events

import (
	"time"

	"github.com/spec-kit/job-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventUserDeleted            EventType = "user_deleted"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordChanged        EventType = "password_changed"
	EventJobCreated             EventType = "job_created"
	EventJobDeleted             EventType = "job_deleted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventUserDeleted,
	EventPasswordResetRequested,
	EventPasswordChanged,
	EventJobCreated,
	EventJobDeleted,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserPayload identifies the account an event concerns.
type UserPayload struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name,omitempty"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role,omitempty"`
}

// UserDeletedPayload payload.
type UserDeletedPayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	JobsRemoved int64  `json:"jobs_removed"`
}

// PasswordResetRequestedPayload carries the secret that must reach the account owner.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	// Via is "change" for an authenticated change and "reset" for a token reset.
	Via string `json:"via"`
}

// JobPayload payload.
type JobPayload struct {
	JobID    string           `json:"job_id"`
	UserID   string           `json:"user_id"`
	Company  string           `json:"company"`
	Position string           `json:"position"`
	Status   domain.JobStatus `json:"status"`
}
