package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "github.com/spec-kit/job-tracker/internal/api/http"
	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/repository/memory"
)

// startServer runs the API over the memory store on a random local port.
func startServer(t *testing.T) (string, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	app := httptransport.NewServer(httptransport.ServerDeps{
		Config: &config.Config{
			App: config.AppConfig{Name: "job-tracker-test", RequestTimeoutSeconds: 5},
			Auth: config.AuthConfig{
				JWTSecret:               "client-test",
				AccessTokenTTLMinutes:   60,
				PasswordResetTTLMinutes: 15,
				BcryptCost:              4,
			},
		},
		Dispatcher: events.NewInMemoryDispatcher(nil),
		Stores: httptransport.Stores{
			Users:  store.Users(),
			Jobs:   store.Jobs(),
			Resets: store.ResetTokens(),
		},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })

	return "http://" + ln.Addr().String(), store
}

func TestClient_JobLifecycle(t *testing.T) {
	baseURL, _ := startServer(t)
	ctx := context.Background()
	c := New(baseURL, WithTimeout(5*time.Second))

	reg, err := c.Register(ctx, "A", "a@x.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, reg.Token, c.Token())

	c.SetToken("")
	_, err = c.ListJobs(ctx, ListOptions{})
	assert.True(t, IsStatus(err, 401))

	_, err = c.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	job, err := c.CreateJob(ctx, JobInput{
		Company:  String("Acme"),
		Position: String("Eng"),
		Status:   String(StatusApplied),
		Date:     String("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), job.Date.UTC())
	assert.Equal(t, reg.ID, job.User)

	jobs, err := c.ListJobs(ctx, ListOptions{Search: "acm"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	fav, err := c.SetFavorite(ctx, job.ID, true)
	require.NoError(t, err)
	assert.True(t, fav.Favorite)
	assert.Equal(t, "Acme", fav.Company)

	favorites, err := c.ListJobs(ctx, ListOptions{Favorite: Bool(true)})
	require.NoError(t, err)
	assert.Len(t, favorites, 1)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	require.Len(t, stats.ByStatus, 4)

	_, err = c.CreateJob(ctx, JobInput{Company: String("NoPosition")})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)
	assert.Equal(t, "position is required", apiErr.Details["position"])

	require.NoError(t, c.DeleteJob(ctx, job.ID))
	_, err = c.GetJob(ctx, job.ID)
	assert.True(t, IsStatus(err, 404))
}

func TestClient_UsersAndAdmin(t *testing.T) {
	baseURL, store := startServer(t)
	ctx := context.Background()

	user := New(baseURL)
	me, err := user.Register(ctx, "User", "user@x.com", "pw123456")
	require.NoError(t, err)

	_, err = user.ListUsers(ctx)
	assert.True(t, IsStatus(err, 403))

	profile, err := user.UpdateProfile(ctx, UserUpdate{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", profile.Name)

	require.NoError(t, user.ChangePassword(ctx, me.ID, "pw123456", "newpass1"))
	err = user.ChangePassword(ctx, me.ID, "pw123456", "newpass2")
	assert.True(t, IsStatus(err, 400))

	admin := New(baseURL)
	adminAuth, err := admin.Register(ctx, "Admin", "admin@x.com", "pw123456")
	require.NoError(t, err)
	stored, err := store.Users().GetByID(ctx, adminAuth.ID)
	require.NoError(t, err)
	stored.Role = domain.RoleAdmin
	require.NoError(t, store.Users().Update(ctx, stored))
	_, err = admin.Login(ctx, "admin@x.com", "pw123456")
	require.NoError(t, err)

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	got, err := admin.GetUser(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	promoted, err := admin.UpdateUser(ctx, me.ID, UserUpdate{Role: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, "Admin", promoted.Role)

	require.NoError(t, admin.DeleteUser(ctx, me.ID))
	_, err = admin.GetUser(ctx, me.ID)
	assert.True(t, IsStatus(err, 404))
}

func TestBoard_AgainstServer(t *testing.T) {
	baseURL, _ := startServer(t)
	ctx := context.Background()
	c := New(baseURL)
	_, err := c.Register(ctx, "A", "a@x.com", "pw123456")
	require.NoError(t, err)

	job, err := c.CreateJob(ctx, JobInput{Company: String("Acme"), Position: String("Eng")})
	require.NoError(t, err)

	var states []OpState
	board := NewBoard(c, func(op Operation) { states = append(states, op.State) })
	require.NoError(t, board.Load(ctx))

	op, err := board.ToggleFavorite(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OpConfirmed, op.State)
	assert.Equal(t, []OpState{OpPending, OpConfirmed}, states)

	server, err := c.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, server.Favorite)

	require.NoError(t, c.DeleteJob(ctx, job.ID))
	op, err = board.ToggleFavorite(ctx, job.ID)
	require.Error(t, err)
	assert.Equal(t, OpReverted, op.State)
	assert.True(t, board.Jobs()[0].Favorite)
}

func TestClient_PasswordResetRequest(t *testing.T) {
	baseURL, _ := startServer(t)
	ctx := context.Background()
	c := New(baseURL)
	_, err := c.Register(ctx, "A", "a@x.com", "pw123456")
	require.NoError(t, err)

	msg, err := c.RequestPasswordReset(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	_, err = c.RequestPasswordReset(ctx, "ghost@x.com")
	assert.True(t, IsStatus(err, 404))

	_, err = c.ResetPassword(ctx, "a@x.com", "bogus", "newpass1")
	assert.True(t, IsStatus(err, 400))
}
