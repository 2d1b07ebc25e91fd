package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/job-tracker/internal/auth"
	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/repository"
	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

var (
	errInvalidCredentials = apperrors.NewDomainError("INVALID_CREDENTIALS", "invalid credentials", http.StatusBadRequest, nil)
	errEmailTaken         = apperrors.NewDomainError("EMAIL_TAKEN", "email already in use", http.StatusBadRequest, nil)
	errInvalidResetToken  = apperrors.NewDomainError("INVALID_RESET_TOKEN", "invalid or expired token", http.StatusBadRequest, nil)
)

// RegisterInput payload for new accounts.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput payload for login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordInput consumes a reset token.
type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and password reset flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.ResetTokenRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	ResetRepo  repository.ResetTokenRepository
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.ResetRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
		resetTTL:   cfg.PasswordResetTTL(),
		now:        time.Now,
	}
}

// Register creates a new account with the default role and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.EventUserRegistered, user.ID, events.UserPayload{
		UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role,
	})
	return result, nil
}

// Login authenticates by email and password. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

// RequestPasswordReset mints a token for the account, replacing any earlier one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.ResetToken, error) {
	email = normalizeEmail(email)
	checks := fieldChecks{}
	checks.check("email", email, "required")
	if err := checks.err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	secret, err := auth.NewResetToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now().UTC()
	token := &domain.ResetToken{
		Email:     user.Email,
		Token:     secret,
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("save reset token: %w", err)
	}

	publish(ctx, s.dispatcher, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email: token.Email, Token: token.Token, ExpiresAt: token.ExpiresAt,
	})
	return token, nil
}

// ResetPassword consumes a valid token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return err
	}

	stored, err := s.resets.Get(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidResetToken
		}
		return fmt.Errorf("load reset token: %w", err)
	}
	if stored.Expired(s.now()) {
		_ = s.resets.Delete(ctx, in.Email)
		return errInvalidResetToken
	}
	if !auth.TokensEqual(stored.Token, in.Token) {
		return errInvalidResetToken
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", nil)
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.setPassword(ctx, user, in.NewPassword); err != nil {
		return err
	}
	if err := s.resets.Delete(ctx, in.Email); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	publish(ctx, s.dispatcher, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{
		UserID: user.ID, Email: user.Email, Via: "reset",
	})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
