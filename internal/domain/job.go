package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus enumerates application stages.
type JobStatus string

const (
	JobStatusApplied   JobStatus = "Applied"
	JobStatusInterview JobStatus = "Interview"
	JobStatusOffer     JobStatus = "Offer"
	JobStatusRejected  JobStatus = "Rejected"
)

// JobStatuses lists every status in display order.
var JobStatuses = []JobStatus{JobStatusApplied, JobStatusInterview, JobStatusOffer, JobStatusRejected}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	for _, known := range JobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Job is a single tracked application owned by one user.
type Job struct {
	ID           string            `bson:"_id"`
	UserID       string            `bson:"user"`
	Company      string            `bson:"company"`
	Position     string            `bson:"position"`
	Status       JobStatus         `bson:"status"`
	Date         time.Time         `bson:"date"`
	Tags         []string          `bson:"tags"`
	Favorite     bool              `bson:"favorite"`
	Notes        string            `bson:"notes"`
	CustomFields map[string]string `bson:"custom_fields"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

// JobPatch lists the fields an update writes; nil fields are left untouched.
type JobPatch struct {
	Company      *string
	Position     *string
	Status       *JobStatus
	Date         *time.Time
	Tags         *[]string
	Favorite     *bool
	Notes        *string
	CustomFields *map[string]string
}

// Apply writes the non-nil patch fields onto job.
func (p JobPatch) Apply(job *Job) {
	if p.Company != nil {
		job.Company = *p.Company
	}
	if p.Position != nil {
		job.Position = *p.Position
	}
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.Date != nil {
		job.Date = *p.Date
	}
	if p.Tags != nil {
		job.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Favorite != nil {
		job.Favorite = *p.Favorite
	}
	if p.Notes != nil {
		job.Notes = *p.Notes
	}
	if p.CustomFields != nil {
		fields := make(map[string]string, len(*p.CustomFields))
		for k, v := range *p.CustomFields {
			fields[k] = v
		}
		job.CustomFields = fields
	}
}

// StatusCount is one bucket of a per-status aggregation.
type StatusCount struct {
	Status JobStatus
	Count  int64
}

// JobStats summarizes job counts.
type JobStats struct {
	Total    int64
	ByStatus []StatusCount
}

// NewJobStats builds stats with every status present, in display order.
func NewJobStats(counts map[JobStatus]int64) JobStats {
	stats := JobStats{ByStatus: make([]StatusCount, 0, len(JobStatuses))}
	for _, status := range JobStatuses {
		n := counts[status]
		stats.ByStatus = append(stats.ByStatus, StatusCount{Status: status, Count: n})
		stats.Total += n
	}
	return stats
}

// MaxCustomFieldKeyLength bounds custom field key names.
const MaxCustomFieldKeyLength = 64

var reservedCustomFieldKeys = map[string]struct{}{
	"id": {}, "_id": {}, "user": {}, "company": {}, "position": {}, "status": {},
	"date": {}, "tags": {}, "favorite": {}, "notes": {}, "customfields": {},
	"createdat": {}, "updatedat": {},
}

// ValidateCustomFieldKey checks a user-defined field name.
func ValidateCustomFieldKey(key string) error {
	trimmed := strings.TrimSpace(key)
	switch {
	case trimmed == "":
		return fmt.Errorf("custom field name must not be blank")
	case trimmed != key:
		return fmt.Errorf("custom field %q has surrounding whitespace", key)
	case len(key) > MaxCustomFieldKeyLength:
		return fmt.Errorf("custom field %q exceeds %d characters", key, MaxCustomFieldKeyLength)
	case strings.HasPrefix(key, "$"):
		return fmt.Errorf("custom field %q must not start with $", key)
	case strings.Contains(key, "."):
		return fmt.Errorf("custom field %q must not contain '.'", key)
	}
	if _, reserved := reservedCustomFieldKeys[strings.ToLower(key)]; reserved {
		return fmt.Errorf("custom field %q is a reserved name", key)
	}
	return nil
}
