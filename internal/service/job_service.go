package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/repository"
	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

const statusRule = "oneof=Applied Interview Offer Rejected"

// jobDateLayouts lists the ISO-8601 forms accepted for a job date, extended
// then basic. Forms without an offset are read as UTC.
var jobDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
	"2006-01",
	"2006-002",
	"20060102T150405Z0700",
	"20060102T150405",
	"20060102T1504",
	"20060102",
	"2006002",
	"2006",
}

// JobInput carries job fields from a request body. Nil pointers are fields the client did not send.
type JobInput struct {
	Company      *string            `json:"company"`
	Position     *string            `json:"position"`
	Status       *string            `json:"status"`
	Date         *string            `json:"date"`
	Tags         *[]string          `json:"tags"`
	Favorite     *bool              `json:"favorite"`
	Notes        *string            `json:"notes"`
	CustomFields *map[string]string `json:"customFields"`
}

// JobQuery narrows a job listing.
type JobQuery struct {
	Status   string
	Search   string
	Favorite *bool
}

// JobService implements owner-scoped job CRUD.
type JobService struct {
	jobs       repository.JobRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewJobService creates the service.
func NewJobService(jobs repository.JobRepository, dispatcher events.Dispatcher) *JobService {
	return &JobService{jobs: jobs, dispatcher: dispatcher, now: time.Now}
}

// List returns the caller's jobs, newest date first.
func (s *JobService) List(ctx context.Context, caller domain.Identity, q JobQuery) ([]domain.Job, error) {
	filter := repository.JobFilter{
		UserID:   caller.ID,
		Search:   strings.TrimSpace(q.Search),
		Favorite: q.Favorite,
	}
	if q.Status != "" {
		checks := fieldChecks{}
		checks.check("status", q.Status, statusRule)
		if err := checks.err(); err != nil {
			return nil, err
		}
		status := domain.JobStatus(q.Status)
		filter.Status = &status
	}

	jobs, err := s.jobs.ListForUser(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Get returns one of the caller's jobs.
func (s *JobService) Get(ctx context.Context, caller domain.Identity, id string) (*domain.Job, error) {
	job, err := s.jobs.GetForUser(ctx, caller.ID, id)
	if err != nil {
		return nil, mapJobError(err)
	}
	return job, nil
}

// Create validates the input and stores a new job owned by the caller.
func (s *JobService) Create(ctx context.Context, caller domain.Identity, in JobInput) (*domain.Job, error) {
	patch, err := s.validate(in, false)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		UserID:       caller.ID,
		Status:       domain.JobStatusApplied,
		Date:         s.now().UTC().Truncate(time.Millisecond),
		Tags:         []string{},
		CustomFields: map[string]string{},
	}
	patch.Apply(job)

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	publish(ctx, s.dispatcher, events.EventJobCreated, caller.ID, jobPayload(job))
	return job, nil
}

// Update writes the fields present in the payload. keys is the set of top-level
// keys the client sent; a payload of exactly {favorite} or {favorite, notes}
// skips validation.
func (s *JobService) Update(ctx context.Context, caller domain.Identity, id string, in JobInput, keys []string) (*domain.Job, error) {
	var patch domain.JobPatch
	if IsToggleOnly(keys) {
		if in.Favorite == nil {
			return nil, apperrors.NewFieldErrors(map[string]string{"favorite": "favorite must be true or false"})
		}
		patch = domain.JobPatch{Favorite: in.Favorite, Notes: in.Notes}
	} else {
		var err error
		if patch, err = s.validate(in, true); err != nil {
			return nil, err
		}
	}

	job, err := s.jobs.UpdateFields(ctx, caller.ID, id, patch)
	if err != nil {
		return nil, mapJobError(err)
	}
	return job, nil
}

// Delete removes one of the caller's jobs.
func (s *JobService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	job, err := s.jobs.GetForUser(ctx, caller.ID, id)
	if err != nil {
		return mapJobError(err)
	}
	if err := s.jobs.Delete(ctx, caller.ID, id); err != nil {
		return mapJobError(err)
	}
	publish(ctx, s.dispatcher, events.EventJobDeleted, caller.ID, jobPayload(job))
	return nil
}

// IsToggleOnly reports whether keys is exactly {favorite} or {favorite, notes}.
func IsToggleOnly(keys []string) bool {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	if _, ok := set["favorite"]; !ok {
		return false
	}
	switch len(set) {
	case 1:
		return true
	case 2:
		_, ok := set["notes"]
		return ok
	}
	return false
}

// validate checks a full payload and converts it into a patch. Update requires a status; create defaults it.
func (s *JobService) validate(in JobInput, requireStatus bool) (domain.JobPatch, error) {
	checks := fieldChecks{}
	patch := domain.JobPatch{
		Tags:     in.Tags,
		Favorite: in.Favorite,
		Notes:    in.Notes,
	}

	company := strings.TrimSpace(deref(in.Company))
	checks.check("company", company, "required")
	patch.Company = &company

	position := strings.TrimSpace(deref(in.Position))
	checks.check("position", position, "required")
	patch.Position = &position

	switch {
	case in.Status != nil:
		checks.check("status", *in.Status, "required,"+statusRule)
		status := domain.JobStatus(*in.Status)
		patch.Status = &status
	case requireStatus:
		checks.add("status", "status is required")
	}

	if in.Date != nil {
		date, err := ParseJobDate(*in.Date)
		if err != nil {
			checks.add("date", "date must be valid (YYYY-MM-DD)")
		} else {
			patch.Date = &date
		}
	}

	if in.CustomFields != nil {
		for key := range *in.CustomFields {
			if err := domain.ValidateCustomFieldKey(key); err != nil {
				checks.add("customFields", err.Error())
				break
			}
		}
	}

	if err := checks.err(); err != nil {
		return domain.JobPatch{}, err
	}
	return patch, nil
}

// ParseJobDate accepts an ISO-8601 date or date-time and normalizes it to UTC
// at millisecond precision.
func ParseJobDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range jobDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: not an ISO-8601 date", value)
}

func mapJobError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("job", nil)
	}
	return err
}

func jobPayload(job *domain.Job) events.JobPayload {
	return events.JobPayload{
		JobID:    job.ID,
		UserID:   job.UserID,
		Company:  job.Company,
		Position: job.Position,
		Status:   job.Status,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
