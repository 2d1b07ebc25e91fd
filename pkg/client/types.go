package client

import (
	"fmt"
	"time"
)

// Job statuses in display order.
const (
	StatusApplied   = "Applied"
	StatusInterview = "Interview"
	StatusOffer     = "Offer"
	StatusRejected  = "Rejected"
)

// Statuses lists every job status in display order.
var Statuses = []string{StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// Job mirrors the server's job representation.
type Job struct {
	ID           string            `json:"id"`
	User         string            `json:"user"`
	Company      string            `json:"company"`
	Position     string            `json:"position"`
	Status       string            `json:"status"`
	Date         time.Time         `json:"date"`
	Tags         []string          `json:"tags"`
	Favorite     bool              `json:"favorite"`
	Notes        string            `json:"notes"`
	CustomFields map[string]string `json:"customFields"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// JobInput is sent on create and update. Only non-nil fields are serialized,
// so an input carrying just Favorite is sent as a lightweight toggle.
type JobInput struct {
	Company      *string            `json:"company,omitempty"`
	Position     *string            `json:"position,omitempty"`
	Status       *string            `json:"status,omitempty"`
	Date         *string            `json:"date,omitempty"`
	Tags         *[]string          `json:"tags,omitempty"`
	Favorite     *bool              `json:"favorite,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	CustomFields *map[string]string `json:"customFields,omitempty"`
}

// ListOptions narrows ListJobs.
type ListOptions struct {
	Status   string
	Search   string
	Favorite *bool
}

// User mirrors the server's account representation.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserUpdate changes account fields. Empty strings keep the stored values.
type UserUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// StatusCount is one chart bucket.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Stats summarizes jobs per status.
type Stats struct {
	Total    int64         `json:"total"`
	ByStatus []StatusCount `json:"byStatus"`
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// String returns a pointer to s, for building JobInput values.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building JobInput values.
func Bool(b bool) *bool { return &b }
