package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/job-tracker/internal/domain"
	"github.com/spec-kit/job-tracker/internal/events"
)

func validJob() JobInput {
	tags := []string{"remote", "go"}
	fields := map[string]string{"recruiter": "Kim"}
	return JobInput{
		Company:      strPtr("Acme"),
		Position:     strPtr("Eng"),
		Status:       strPtr("Interview"),
		Date:         strPtr("2024-01-01"),
		Tags:         &tags,
		Notes:        strPtr("first call"),
		CustomFields: &fields,
	}
}

func TestJobService_CreateAndGetRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	ctx := context.Background()

	created, err := env.jobs.Create(ctx, alice, validJob())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, alice.ID, created.UserID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), created.Date)

	got, err := env.jobs.Get(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, []string{"remote", "go"}, got.Tags)
	assert.Equal(t, map[string]string{"recruiter": "Kim"}, got.CustomFields)
	assert.Equal(t, domain.JobStatusInterview, got.Status)

	assert.Contains(t, env.eventTypes(), events.EventJobCreated)
}

func TestJobService_CreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	now := time.Date(2024, 6, 1, 9, 30, 0, 123456789, time.UTC)
	env.jobs.now = func() time.Time { return now }

	job, err := env.jobs.Create(context.Background(), alice, JobInput{Company: strPtr("Acme"), Position: strPtr("Eng")})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusApplied, job.Status)
	assert.Equal(t, now.Truncate(time.Millisecond), job.Date)
	assert.Equal(t, []string{}, job.Tags)
	assert.Equal(t, map[string]string{}, job.CustomFields)
	assert.False(t, job.Favorite)
	assert.Equal(t, "", job.Notes)
}

func TestJobService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	badFields := map[string]string{"$where": "x"}

	_, err := env.jobs.Create(context.Background(), alice, JobInput{
		Company:      strPtr("  "),
		Status:       strPtr("Ghosted"),
		Date:         strPtr("yesterday"),
		CustomFields: &badFields,
	})
	de := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "company is required", de.Details["company"])
	assert.Equal(t, "position is required", de.Details["position"])
	assert.Equal(t, "status must be one of: Applied, Interview, Offer, Rejected", de.Details["status"])
	assert.Equal(t, "date must be valid (YYYY-MM-DD)", de.Details["date"])
	assert.Contains(t, de.Details, "customFields")
}

func TestJobService_OwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	ctx := context.Background()

	job, err := env.jobs.Create(ctx, alice, validJob())
	require.NoError(t, err)

	_, err = env.jobs.Get(ctx, bob, job.ID)
	requireStatus(t, err, http.StatusNotFound)

	_, err = env.jobs.Update(ctx, bob, job.ID, JobInput{Favorite: boolPtr(true)}, []string{"favorite"})
	requireStatus(t, err, http.StatusNotFound)

	err = env.jobs.Delete(ctx, bob, job.ID)
	requireStatus(t, err, http.StatusNotFound)

	list, err := env.jobs.List(ctx, bob, JobQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)

	still, err := env.jobs.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.False(t, still.Favorite)
}

func TestJobService_ToggleDoesNotTouchOtherFields(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	ctx := context.Background()

	job, err := env.jobs.Create(ctx, alice, validJob())
	require.NoError(t, err)

	updated, err := env.jobs.Update(ctx, alice, job.ID, JobInput{Favorite: boolPtr(true)}, []string{"favorite"})
	require.NoError(t, err)
	assert.True(t, updated.Favorite)
	assert.Equal(t, job.Company, updated.Company)
	assert.Equal(t, job.Position, updated.Position)
	assert.Equal(t, job.Status, updated.Status)
	assert.Equal(t, job.Date, updated.Date)
	assert.Equal(t, job.Tags, updated.Tags)
	assert.Equal(t, job.Notes, updated.Notes)

	updated, err = env.jobs.Update(ctx, alice, job.ID, JobInput{Favorite: boolPtr(false), Notes: strPtr("offer soon")}, []string{"favorite", "notes"})
	require.NoError(t, err)
	assert.False(t, updated.Favorite)
	assert.Equal(t, "offer soon", updated.Notes)
	assert.Equal(t, job.CustomFields, updated.CustomFields)
}

func TestJobService_ToggleRequiresFavoriteValue(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	ctx := context.Background()

	job, err := env.jobs.Create(ctx, alice, validJob())
	require.NoError(t, err)

	_, err = env.jobs.Update(ctx, alice, job.ID, JobInput{}, []string{"favorite"})
	de := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "favorite must be true or false", de.Details["favorite"])

	_, err = env.jobs.Update(ctx, alice, job.ID, JobInput{Notes: strPtr("x")}, []string{"favorite", "notes"})
	requireStatus(t, err, http.StatusBadRequest)

	stored, err := env.jobs.Get(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.UpdatedAt, stored.UpdatedAt)
	assert.Equal(t, job.Notes, stored.Notes)
}

func TestJobService_FullUpdate(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	ctx := context.Background()

	job, err := env.jobs.Create(ctx, alice, validJob())
	require.NoError(t, err)

	_, err = env.jobs.Update(ctx, alice, job.ID, JobInput{Notes: strPtr("only notes")}, []string{"notes"})
	de := requireStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, de.Details, "company")
	assert.Equal(t, "status is required", de.Details["status"])

	updated, err := env.jobs.Update(ctx, alice, job.ID, JobInput{
		Company:  strPtr("Globex"),
		Position: strPtr("Staff Eng"),
		Status:   strPtr("Offer"),
	}, []string{"company", "position", "status"})
	require.NoError(t, err)
	assert.Equal(t, "Globex", updated.Company)
	assert.Equal(t, domain.JobStatusOffer, updated.Status)
	assert.Equal(t, job.Date, updated.Date)
	assert.Equal(t, job.Tags, updated.Tags)
	assert.Equal(t, job.Notes, updated.Notes)
}

func TestJobService_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	ctx := context.Background()

	mk := func(company, position, status, date string) *domain.Job {
		job, err := env.jobs.Create(ctx, alice, JobInput{
			Company: strPtr(company), Position: strPtr(position), Status: strPtr(status), Date: strPtr(date),
		})
		require.NoError(t, err)
		return job
	}
	acme := mk("Acme", "Backend", "Applied", "2024-01-01")
	globex := mk("Globex", "Frontend", "Interview", "2024-02-01")
	mk("Initech", "Backend Lead", "Rejected", "2023-12-01")

	_, err := env.jobs.Update(ctx, alice, acme.ID, JobInput{Favorite: boolPtr(true)}, []string{"favorite"})
	require.NoError(t, err)

	all, err := env.jobs.List(ctx, alice, JobQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, globex.ID, all[0].ID)
	assert.Equal(t, acme.ID, all[1].ID)

	backend, err := env.jobs.List(ctx, alice, JobQuery{Search: "backend"})
	require.NoError(t, err)
	assert.Len(t, backend, 2)

	interviews, err := env.jobs.List(ctx, alice, JobQuery{Status: "Interview"})
	require.NoError(t, err)
	require.Len(t, interviews, 1)
	assert.Equal(t, globex.ID, interviews[0].ID)

	favorites, err := env.jobs.List(ctx, alice, JobQuery{Favorite: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, acme.ID, favorites[0].ID)

	_, err = env.jobs.List(ctx, alice, JobQuery{Status: "Pending"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestJobService_DeleteAndStats(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice@x.com")
	bob := env.register(t, "Bob", "bob@x.com")
	ctx := context.Background()

	first, err := env.jobs.Create(ctx, alice, validJob())
	require.NoError(t, err)
	_, err = env.jobs.Create(ctx, alice, JobInput{Company: strPtr("B"), Position: strPtr("P")})
	require.NoError(t, err)
	_, err = env.jobs.Create(ctx, bob, JobInput{Company: strPtr("C"), Position: strPtr("P"), Status: strPtr("Offer")})
	require.NoError(t, err)

	stats, err := env.stats.ForUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, []domain.StatusCount{
		{Status: domain.JobStatusApplied, Count: 1},
		{Status: domain.JobStatusInterview, Count: 1},
		{Status: domain.JobStatusOffer, Count: 0},
		{Status: domain.JobStatusRejected, Count: 0},
	}, stats.ByStatus)

	_, err = env.stats.Global(ctx, alice)
	requireStatus(t, err, http.StatusForbidden)

	admin := env.promote(t, bob, domain.RoleAdmin)
	global, err := env.stats.Global(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), global.Total)

	require.NoError(t, env.jobs.Delete(ctx, alice, first.ID))
	_, err = env.jobs.Get(ctx, alice, first.ID)
	requireStatus(t, err, http.StatusNotFound)
	assert.Contains(t, env.eventTypes(), events.EventJobDeleted)
}
