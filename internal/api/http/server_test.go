package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/job-tracker/internal/api/http/handlers"
	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/observability"
	"github.com/spec-kit/job-tracker/internal/repository/memory"
)

type testServer struct {
	t          *testing.T
	app        *fiber.App
	store      *memory.Store
	dispatcher events.Dispatcher
}

func newTestServer(t *testing.T, health map[string]handlers.Pinger) *testServer {
	t.Helper()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(nil)
	cfg := &config.Config{
		App: config.AppConfig{Name: "job-tracker-test", Version: "test", RequestTimeoutSeconds: 5},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 15,
			BcryptCost:              4,
		},
	}
	if health == nil {
		health = map[string]handlers.Pinger{"store": store.ResetTokens()}
	}
	app := NewServer(ServerDeps{
		Config:     cfg,
		Metrics:    observability.NewMetrics(),
		Dispatcher: dispatcher,
		Stores: Stores{
			Users:  store.Users(),
			Jobs:   store.Jobs(),
			Resets: store.ResetTokens(),
		},
		Health: health,
	})
	return &testServer{t: t, app: app, store: store, dispatcher: dispatcher}
}

func (s *testServer) do(method, path, token string, body any) (int, []byte) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, out
}

func (s *testServer) register(name, email string) map[string]any {
	s.t.Helper()
	status, body := s.do(fiber.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "pw123456",
	})
	require.Equal(s.t, fiber.StatusCreated, status, string(body))
	return decode[map[string]any](s.t, body)
}

// admin registers an account, promotes it in the store and logs in again so the token carries the role.
func (s *testServer) admin(email string) string {
	s.t.Helper()
	s.register("Admin", email)
	user, err := s.store.Users().GetByEmail(context.Background(), email)
	require.NoError(s.t, err)
	user.Role = domain.RoleAdmin
	require.NoError(s.t, s.store.Users().Update(context.Background(), user))

	status, body := s.do(fiber.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "pw123456"})
	require.Equal(s.t, fiber.StatusOK, status)
	return decode[map[string]any](s.t, body)["token"].(string)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func TestScenario_RegisterLoginCreateListDelete(t *testing.T) {
	s := newTestServer(t, nil)

	reg := s.register("A", "a@x.com")
	assert.NotEmpty(t, reg["token"])
	assert.Equal(t, "a@x.com", reg["email"])
	assert.Equal(t, "User", reg["role"])

	status, body := s.do(fiber.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, fiber.StatusOK, status)
	token := decode[map[string]any](t, body)["token"].(string)
	require.NotEmpty(t, token)

	status, body = s.do(fiber.MethodPost, "/api/jobs", token, map[string]any{
		"company": "Acme", "position": "Eng", "status": "Applied", "date": "2024-01-01",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	job := decode[map[string]any](t, body)
	id, _ := job["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, reg["id"], job["user"])
	assert.Equal(t, "2024-01-01T00:00:00Z", job["date"])
	assert.Equal(t, []any{}, job["tags"])
	assert.Equal(t, map[string]any{}, job["customFields"])
	assert.Equal(t, false, job["favorite"])

	status, body = s.do(fiber.MethodGet, "/api/jobs", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	list := decode[[]map[string]any](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	status, body = s.do(fiber.MethodDelete, "/api/jobs/"+id, token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "job deleted", decode[map[string]any](t, body)["message"])

	status, body = s.do(fiber.MethodGet, "/api/jobs", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(body))
}

func TestScenario_NonAdminCannotListUsers(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("A", "a@x.com")["token"].(string)

	status, body := s.do(fiber.MethodGet, "/api/users", token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", decode[errorBody](t, body).Error.Code)

	adminToken := s.admin("root@x.com")
	status, body = s.do(fiber.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	users := decode[[]map[string]any](t, body)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.NotContains(t, u, "password")
		assert.NotContains(t, u, "passwordHash")
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(fiber.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", decode[errorBody](t, body).Error.Code)

	status, _ = s.do(fiber.MethodGet, "/api/users/me/profile", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(fiber.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@x.com", "password": "123"})
	require.Equal(t, fiber.StatusBadRequest, status)
	errBody := decode[errorBody](t, body)
	assert.Equal(t, "VALIDATION_FAILED", errBody.Error.Code)
	assert.Equal(t, "name is required", errBody.Error.Details["name"])
	assert.Equal(t, "password must be at least 6 characters", errBody.Error.Details["password"])

	s.register("A", "a@x.com")
	status, body = s.do(fiber.MethodPost, "/api/auth/register", "", map[string]string{"name": "B", "email": "a@x.com", "password": "pw123456"})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "email already in use", decode[errorBody](t, body).Error.Message)

	status, _ = s.do(fiber.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "nope-nope"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestJobs_CrossUserAccessIsNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register("Alice", "alice@x.com")["token"].(string)
	bob := s.register("Bob", "bob@x.com")["token"].(string)

	status, body := s.do(fiber.MethodPost, "/api/jobs", alice, map[string]any{"company": "Acme", "position": "Eng"})
	require.Equal(t, fiber.StatusCreated, status)
	id := decode[map[string]any](t, body)["id"].(string)

	for _, tc := range []struct {
		method string
		body   any
	}{
		{fiber.MethodGet, nil},
		{fiber.MethodPut, map[string]any{"favorite": true}},
		{fiber.MethodDelete, nil},
	} {
		status, body := s.do(tc.method, "/api/jobs/"+id, bob, tc.body)
		assert.Equal(t, fiber.StatusNotFound, status, tc.method)
		assert.Equal(t, "NOT_FOUND", decode[errorBody](t, body).Error.Code)
	}

	status, _ = s.do(fiber.MethodGet, "/api/jobs/"+id, alice, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestJobs_UpdatePayloadShapes(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("A", "a@x.com")["token"].(string)

	status, body := s.do(fiber.MethodPost, "/api/jobs", token, map[string]any{
		"company": "Acme", "position": "Eng", "status": "Interview", "date": "2024-01-01",
		"tags": []string{"go"}, "customFields": map[string]string{"salary": "100k"},
	})
	require.Equal(t, fiber.StatusCreated, status)
	created := decode[map[string]any](t, body)
	path := "/api/jobs/" + created["id"].(string)

	status, body = s.do(fiber.MethodPut, path, token, map[string]any{"favorite": true})
	require.Equal(t, fiber.StatusOK, status, string(body))
	toggled := decode[map[string]any](t, body)
	assert.Equal(t, true, toggled["favorite"])
	for _, field := range []string{"company", "position", "status", "date", "tags", "customFields", "notes"} {
		assert.Equal(t, created[field], toggled[field], field)
	}

	status, body = s.do(fiber.MethodPut, path, token, map[string]any{"favorite": nil})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, decode[errorBody](t, body).Error.Details, "favorite")

	status, body = s.do(fiber.MethodPut, path, token, map[string]any{"favorite": false, "notes": "call back"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "call back", decode[map[string]any](t, body)["notes"])

	status, body = s.do(fiber.MethodPut, path, token, map[string]any{"favorite": true, "tags": []string{"x"}})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, decode[errorBody](t, body).Error.Details, "company")

	status, body = s.do(fiber.MethodPut, path, token, map[string]any{"company": "Globex", "position": "Lead", "status": "Offer"})
	require.Equal(t, fiber.StatusOK, status)
	full := decode[map[string]any](t, body)
	assert.Equal(t, "Globex", full["company"])
	assert.Equal(t, "Offer", full["status"])
	assert.Equal(t, created["tags"], full["tags"])
}

func TestJobs_CreateValidationDetails(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("A", "a@x.com")["token"].(string)

	status, body := s.do(fiber.MethodPost, "/api/jobs", token, map[string]any{
		"status": "Nope", "customFields": map[string]string{"company": "x"},
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	errBody := decode[errorBody](t, body)
	assert.Equal(t, "VALIDATION_FAILED", errBody.Error.Code)
	assert.Equal(t, "company is required", errBody.Error.Details["company"])
	assert.Equal(t, "position is required", errBody.Error.Details["position"])
	assert.Contains(t, errBody.Error.Details, "status")
	assert.Contains(t, errBody.Error.Details, "customFields")

	status, _ = s.do(fiber.MethodGet, "/api/jobs?favorite=maybe", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(fiber.MethodPost, "/api/jobs", token, map[string]any{
		"company": "Acme", "position": "Eng", "date": "2024-01-01T10:00",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	assert.Equal(t, "2024-01-01T10:00:00Z", decode[map[string]any](t, body)["date"])
}

func TestJobs_Stats(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("A", "a@x.com")["token"].(string)
	for _, st := range []string{"Applied", "Applied", "Offer"} {
		status, _ := s.do(fiber.MethodPost, "/api/jobs", token, map[string]any{"company": "C", "position": "P", "status": st})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := s.do(fiber.MethodGet, "/api/jobs/stats", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"total":3,"byStatus":[
		{"status":"Applied","count":2},
		{"status":"Interview","count":0},
		{"status":"Offer","count":1},
		{"status":"Rejected","count":0}]}`, string(body))

	status, _ = s.do(fiber.MethodGet, "/api/jobs/admin/stats", token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	adminToken := s.admin("root@x.com")
	status, body = s.do(fiber.MethodGet, "/api/jobs/admin/stats", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), decode[map[string]any](t, body)["total"])
}

func TestUsers_ProfileAndPasswordChange(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register("Alice", "alice@x.com")
	token := alice["token"].(string)
	bob := s.register("Bob", "bob@x.com")

	status, body := s.do(fiber.MethodGet, "/api/users/me/profile", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	profile := decode[map[string]any](t, body)
	assert.Equal(t, "Alice", profile["name"])
	assert.Contains(t, profile, "createdAt")

	status, body = s.do(fiber.MethodPut, "/api/users/me/profile", token, map[string]any{"name": "Alice Z"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Alice Z", decode[map[string]any](t, body)["name"])

	status, _ = s.do(fiber.MethodGet, "/api/users/"+bob["id"].(string), token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do(fiber.MethodGet, "/api/users/does-not-exist", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	path := "/api/users/" + alice["id"].(string) + "/change-password"
	status, body = s.do(fiber.MethodPost, path, token, map[string]string{"oldPassword": "bad-old", "newPassword": "newpass1"})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "old password is incorrect", decode[errorBody](t, body).Error.Message)

	status, _ = s.do(fiber.MethodPost, path, token, map[string]string{"oldPassword": "pw123456", "newPassword": "newpass1"})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(fiber.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "newpass1"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestUsers_AdminDeleteRemovesJobs(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register("Alice", "alice@x.com")
	token := alice["token"].(string)
	status, _ := s.do(fiber.MethodPost, "/api/jobs", token, map[string]any{"company": "C", "position": "P"})
	require.Equal(t, fiber.StatusCreated, status)

	userPath := "/api/users/" + alice["id"].(string)
	status, _ = s.do(fiber.MethodDelete, userPath, token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	adminToken := s.admin("root@x.com")
	status, body := s.do(fiber.MethodPut, userPath, adminToken, map[string]any{"role": "Superuser"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Superuser", decode[map[string]any](t, body)["role"])

	status, _ = s.do(fiber.MethodDelete, userPath, adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(fiber.MethodDelete, userPath, adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = s.do(fiber.MethodGet, "/api/jobs/admin/stats", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(0), decode[map[string]any](t, body)["total"])
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("A", "a@x.com")

	var token string
	s.dispatcher.Subscribe(events.EventPasswordResetRequested, func(_ context.Context, e events.Event) error {
		token = e.Payload.(events.PasswordResetRequestedPayload).Token
		return nil
	})

	status, _ := s.do(fiber.MethodPost, "/api/auth/request-password-reset", "", map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body := s.do(fiber.MethodPost, "/api/auth/request-password-reset", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, string(body), token)
	require.Len(t, token, 64)

	status, body = s.do(fiber.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "a@x.com", "token": "wrong", "newPassword": "newpass1"})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid or expired token", decode[errorBody](t, body).Error.Message)

	status, _ = s.do(fiber.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "a@x.com", "token": token, "newPassword": "newpass1"})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(fiber.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "a@x.com", "token": token, "newPassword": "newpass2"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(fiber.MethodGet, "/health/live", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", decode[map[string]any](t, body)["status"])

	status, _ = s.do(fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = s.do(fiber.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "job_tracker_http_requests_total")

	down := newTestServer(t, map[string]handlers.Pinger{
		"redis": handlers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	status, body = down.do(fiber.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), "connection refused")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(fiber.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, body).Error.Code)
	assert.NotEmpty(t, body)
}
