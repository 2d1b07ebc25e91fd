package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/job-tracker/internal/auth"
	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/repository"
	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

var errOldPasswordIncorrect = apperrors.NewDomainError("OLD_PASSWORD_INCORRECT", "old password is incorrect", http.StatusBadRequest, nil)

// UpdateUserInput carries account changes. Empty values keep the stored ones.
type UpdateUserInput struct {
	Name  string  `json:"name"`
	Email string  `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role"`
}

// ChangePasswordInput payload.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// UserService manages profiles and administrative account actions.
type UserService struct {
	users      repository.UserRepository
	jobs       repository.JobRepository
	dispatcher events.Dispatcher
	bcryptCost int
}

// UserDependencies encapsulates repo requirements for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	JobRepo    repository.JobRepository
	Dispatcher events.Dispatcher
}

// NewUserService creates the service.
func NewUserService(cfg config.AuthConfig, deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		jobs:       deps.JobRepo,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.BcryptCost,
	}
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, caller domain.Identity) (*domain.User, error) {
	return s.load(ctx, caller.ID)
}

// UpdateProfile changes the caller's name or email. Role is never applied here.
func (s *UserService) UpdateProfile(ctx context.Context, caller domain.Identity, in UpdateUserInput) (*domain.User, error) {
	in.Role = nil
	user, err := s.load(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, in)
}

// ChangePassword verifies the old password of the target account before replacing it.
func (s *UserService) ChangePassword(ctx context.Context, caller domain.Identity, targetID string, in ChangePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	user, err := s.loadAccessible(ctx, caller, targetID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, in.OldPassword); err != nil {
		return errOldPasswordIncorrect
	}

	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	publish(ctx, s.dispatcher, events.EventPasswordChanged, caller.ID, events.PasswordChangedPayload{
		UserID: user.ID, Email: user.Email, Via: "change",
	})
	return nil
}

// List returns every account. Admin and Superuser only.
func (s *UserService) List(ctx context.Context, caller domain.Identity) ([]domain.User, error) {
	if !caller.Role.Privileged() {
		return nil, apperrors.NewForbidden("admins only")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns an account the caller may see.
func (s *UserService) Get(ctx context.Context, caller domain.Identity, id string) (*domain.User, error) {
	return s.loadAccessible(ctx, caller, id)
}

// Update edits an account the caller may see. Role changes need a privileged caller.
func (s *UserService) Update(ctx context.Context, caller domain.Identity, id string, in UpdateUserInput) (*domain.User, error) {
	user, err := s.loadAccessible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.Privileged() {
		in.Role = nil
	}
	return s.apply(ctx, user, in)
}

// Delete removes an account and every job it owns. Admin and Superuser only.
func (s *UserService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	if !caller.Role.Privileged() {
		return apperrors.NewForbidden("admins only")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.jobs.DeleteByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("delete jobs of user: %w", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return mapUserError(err)
	}

	publish(ctx, s.dispatcher, events.EventUserDeleted, caller.ID, events.UserDeletedPayload{
		UserID: user.ID, Email: user.Email, JobsRemoved: removed,
	})
	return nil
}

func (s *UserService) apply(ctx context.Context, user *domain.User, in UpdateUserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Role != nil && *in.Role != "" {
		role := domain.Role(*in.Role)
		if !role.Valid() {
			return nil, apperrors.NewFieldErrors(map[string]string{
				"role": describe("role", "oneof", "User Admin Superuser"),
			})
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, mapUserError(err)
	}
	return user, nil
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

// loadAccessible returns 404 for a missing account before checking access.
func (s *UserService) loadAccessible(ctx context.Context, caller domain.Identity, id string) (*domain.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(user.ID) {
		return nil, apperrors.NewForbidden("forbidden")
	}
	return user, nil
}

func mapUserError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", nil)
	}
	return err
}
