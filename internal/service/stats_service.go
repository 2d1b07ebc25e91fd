package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/repository"
	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

// StatsService derives per-status job counts.
type StatsService struct {
	jobs repository.JobRepository
}

// NewStatsService creates the service.
func NewStatsService(jobs repository.JobRepository) *StatsService {
	return &StatsService{jobs: jobs}
}

// ForUser counts the caller's jobs.
func (s *StatsService) ForUser(ctx context.Context, caller domain.Identity) (domain.JobStats, error) {
	return s.count(ctx, &caller.ID)
}

// Global counts every job in the store.
func (s *StatsService) Global(ctx context.Context, caller domain.Identity) (domain.JobStats, error) {
	if !caller.Role.Privileged() {
		return domain.JobStats{}, apperrors.NewForbidden("admins only")
	}
	return s.count(ctx, nil)
}

func (s *StatsService) count(ctx context.Context, userID *string) (domain.JobStats, error) {
	counts, err := s.jobs.CountByStatus(ctx, userID)
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("count jobs: %w", err)
	}
	return domain.NewJobStats(counts), nil
}
