package dto

import (
	"time"

	"github.com/spec-kit/job-tracker/internal/domain"
)

// JobResponse is the wire form of a job.
type JobResponse struct {
	ID           string            `json:"id"`
	User         string            `json:"user"`
	Company      string            `json:"company"`
	Position     string            `json:"position"`
	Status       domain.JobStatus  `json:"status"`
	Date         time.Time         `json:"date"`
	Tags         []string          `json:"tags"`
	Favorite     bool              `json:"favorite"`
	Notes        string            `json:"notes"`
	CustomFields map[string]string `json:"customFields"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// StatusCountResponse is one bucket of the stats breakdown.
type StatusCountResponse struct {
	Status domain.JobStatus `json:"status"`
	Count  int64            `json:"count"`
}

// StatsResponse summarizes jobs per status.
type StatsResponse struct {
	Total    int64                 `json:"total"`
	ByStatus []StatusCountResponse `json:"byStatus"`
}

// NewJobResponse maps a domain job, never emitting null collections.
func NewJobResponse(job *domain.Job) JobResponse {
	tags := job.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := job.CustomFields
	if fields == nil {
		fields = map[string]string{}
	}
	return JobResponse{
		ID:           job.ID,
		User:         job.UserID,
		Company:      job.Company,
		Position:     job.Position,
		Status:       job.Status,
		Date:         job.Date,
		Tags:         tags,
		Favorite:     job.Favorite,
		Notes:        job.Notes,
		CustomFields: fields,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// NewJobResponses maps a slice of jobs.
func NewJobResponses(jobs []domain.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, NewJobResponse(&jobs[i]))
	}
	return out
}

// NewStatsResponse maps aggregated counts.
func NewStatsResponse(stats domain.JobStats) StatsResponse {
	out := StatsResponse{Total: stats.Total, ByStatus: make([]StatusCountResponse, 0, len(stats.ByStatus))}
	for _, sc := range stats.ByStatus {
		out.ByStatus = append(out.ByStatus, StatusCountResponse{Status: sc.Status, Count: sc.Count})
	}
	return out
}
