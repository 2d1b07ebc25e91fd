// Package client is a Go SDK for the job tracker REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 15 * time.Second

// Client issues authenticated requests against the API.
type Client struct {
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithToken starts the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each request when the context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token used for requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token. An empty token logs the client out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates an account and keeps its token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, fiber.MethodPost, "/api/auth/register", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, fiber.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// RequestPasswordReset asks the server to send a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return c.message(ctx, fiber.MethodPost, "/api/auth/request-password-reset", map[string]string{"email": email})
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) (string, error) {
	return c.message(ctx, fiber.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": email, "token": token, "newPassword": newPassword,
	})
}

// ListJobs returns the caller's jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, opts ListOptions) ([]Job, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Search != "" {
		q.Set("q", opts.Search)
	}
	if opts.Favorite != nil {
		q.Set("favorite", strconv.FormatBool(*opts.Favorite))
	}
	path := "/api/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	jobs := []Job{}
	if err := c.do(ctx, fiber.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CreateJob stores a new job.
func (c *Client) CreateJob(ctx context.Context, in JobInput) (*Job, error) {
	var out Job
	if err := c.do(ctx, fiber.MethodPost, "/api/jobs", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var out Job
	if err := c.do(ctx, fiber.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateJob sends the non-nil fields of in.
func (c *Client) UpdateJob(ctx context.Context, id string, in JobInput) (*Job, error) {
	var out Job
	if err := c.do(ctx, fiber.MethodPut, "/api/jobs/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetFavorite sends a favorite-only update.
func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) (*Job, error) {
	return c.UpdateJob(ctx, id, JobInput{Favorite: &favorite})
}

// DeleteJob removes one job.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	_, err := c.message(ctx, fiber.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil)
	return err
}

// Stats returns the caller's per-status counts.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, fiber.MethodGet, "/api/jobs/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminStats returns per-status counts over every job.
func (c *Client) AdminStats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, fiber.MethodGet, "/api/jobs/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the caller's account.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, fiber.MethodGet, "/api/users/me/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the caller's name or email.
func (c *Client) UpdateProfile(ctx context.Context, in UserUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, fiber.MethodPut, "/api/users/me/profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the password of account id.
func (c *Client) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	_, err := c.message(ctx, fiber.MethodPost, "/api/users/"+url.PathEscape(id)+"/change-password", map[string]string{
		"oldPassword": oldPassword, "newPassword": newPassword,
	})
	return err
}

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := c.do(ctx, fiber.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches one account.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := c.do(ctx, fiber.MethodGet, "/api/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser edits an account.
func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, fiber.MethodPut, "/api/users/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an account and its jobs.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.message(ctx, fiber.MethodDelete, "/api/users/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) message(ctx context.Context, method, path string, body any) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if token := c.Token(); token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		a.JSON(body)
	}
	a.Timeout(c.requestTimeout(ctx))
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}

	if status >= fiber.StatusBadRequest {
		apiErr := &APIError{StatusCode: status}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
		return time.Millisecond
	}
	return c.timeout
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
