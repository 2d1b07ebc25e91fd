package worker

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/observability"
	"github.com/spec-kit/job-tracker/internal/service"
)

func TestStartEventMetrics_CountsPublishedEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()
	StartEventMetrics(dispatcher, metrics)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventJobCreated}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventJobCreated}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventUserDeleted}))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.DomainEventsTotal.WithLabelValues("job_created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DomainEventsTotal.WithLabelValues("user_deleted")))
}

func TestStartNotificationWorker_LogsResetLink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	notifications := service.NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}, "http://app.test/reset")
	StartNotificationWorker(notifications)
	StartNotificationWorker(nil)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventPasswordResetRequested,
		Payload: events.PasswordResetRequestedPayload{Email: "a@x.com", Token: "abc"},
	}))

	entries := logs.FilterMessage("Password reset link").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "http://app.test/reset?email=a%40x.com&token=abc", entries[0].ContextMap()["link"])
}
