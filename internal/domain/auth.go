package domain

import "time"

// Identity is the authenticated caller decoded from a bearer token.
type Identity struct {
	ID    string
	Email string
	Role  Role
}

// CanAccess reports whether the caller may act on the account with targetID.
func (i Identity) CanAccess(targetID string) bool {
	return i.ID == targetID || i.Role.Privileged()
}

// ResetToken is a short-lived credential authorizing one password change.
type ResetToken struct {
	Email     string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Expired reports whether the token is no longer usable at now.
func (t ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
