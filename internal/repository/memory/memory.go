// Package memory implements the repository interfaces over process-local maps.
// It backs the "memory" store driver used for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/repository"
)

// Store holds users, jobs and reset tokens behind one mutex.
type Store struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	jobs   map[string]domain.Job
	resets map[string]domain.ResetToken
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		jobs:   make(map[string]domain.Job),
		resets: make(map[string]domain.ResetToken),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Jobs exposes the store as a JobRepository.
func (s *Store) Jobs() repository.JobRepository { return (*jobRepo)(s) }

// ResetTokens exposes the store as a ResetTokenRepository.
func (s *Store) ResetTokens() repository.ResetTokenRepository { return (*resetRepo)(s) }

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	now := r.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.users {
		if id != user.ID && existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = r.now()
	r.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type jobRepo Store

func (r *jobRepo) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	job.ID = uuid.NewString()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (r *jobRepo) GetForUser(_ context.Context, userID, id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok || job.UserID != userID {
		return nil, repository.ErrNotFound
	}
	out := cloneJob(job)
	return &out, nil
}

func (r *jobRepo) ListForUser(_ context.Context, filter repository.JobFilter) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	jobs := []domain.Job{}
	for _, job := range r.jobs {
		if job.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		if filter.Favorite != nil && job.Favorite != *filter.Favorite {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(job.Company), term) &&
			!strings.Contains(strings.ToLower(job.Position), term) {
			continue
		}
		jobs = append(jobs, cloneJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].Date.Equal(jobs[j].Date) {
			return jobs[i].Date.After(jobs[j].Date)
		}
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

func (r *jobRepo) UpdateFields(_ context.Context, userID, id string, patch domain.JobPatch) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.UserID != userID {
		return nil, repository.ErrNotFound
	}
	patch.Apply(&job)
	job.UpdatedAt = r.now()
	r.jobs[id] = cloneJob(job)
	out := cloneJob(job)
	return &out, nil
}

func (r *jobRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *jobRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, job := range r.jobs {
		if job.UserID == userID {
			delete(r.jobs, id)
			n++
		}
	}
	return n, nil
}

func (r *jobRepo) CountByStatus(_ context.Context, userID *string) (map[domain.JobStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.JobStatus]int64)
	for _, job := range r.jobs {
		if userID != nil && job.UserID != *userID {
			continue
		}
		counts[job.Status]++
	}
	return counts, nil
}

type resetRepo Store

func (r *resetRepo) Save(_ context.Context, token *domain.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = r.now()
	}
	r.resets[token.Email] = *token
	return nil
}

func (r *resetRepo) Get(_ context.Context, email string) (*domain.ResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.resets[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &token, nil
}

func (r *resetRepo) Delete(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resets, email)
	return nil
}

func (r *resetRepo) Ping(context.Context) error { return nil }

func cloneJob(job domain.Job) domain.Job {
	job.Tags = append([]string{}, job.Tags...)
	fields := make(map[string]string, len(job.CustomFields))
	for k, v := range job.CustomFields {
		fields[k] = v
	}
	job.CustomFields = fields
	return job
}
