package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/observability"
	"github.com/spec-kit/helpdesk-portal/internal/service"
)

type stubSweeper struct {
	result  service.SweepResult
	err     error
	calls   int
	hadDeadline bool
}

func (s *stubSweeper) Sweep(ctx context.Context) (service.SweepResult, error) {
	s.calls++
	_, s.hadDeadline = ctx.Deadline()
	return s.result, s.err
}

func TestNewEscalationSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewEscalationScheduler(SchedulerOptions{Schedule: "every tuesday"}, &stubSweeper{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnceRecordsSweep(t *testing.T) {
	at := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	sweeper := &stubSweeper{result: service.SweepResult{Scanned: 5, Due: 3, Notified: 2, Suppressed: 1}}
	metrics := observability.NewMetrics()

	sched, err := NewEscalationScheduler(SchedulerOptions{
		Schedule: "0 9 * * 1-5",
		Clock:    func() time.Time { return at },
	}, sweeper, metrics, zap.NewNop())
	require.NoError(t, err)

	result, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Notified)
	assert.Equal(t, 1, sweeper.calls)
	assert.True(t, sweeper.hadDeadline)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Sweeps)
	assert.Equal(t, int64(2), snap.Escalations)
	require.NotNil(t, snap.LastSweepTime)
	assert.True(t, at.Equal(*snap.LastSweepTime))
}

func TestRunOnceLogsOneSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sweeper := &stubSweeper{result: service.SweepResult{Scanned: 3, Due: 1, Notified: 1}}

	sched, err := NewEscalationScheduler(SchedulerOptions{Schedule: "@hourly"}, sweeper, nil, zap.New(core))
	require.NoError(t, err)

	_, err = sched.RunOnce(context.Background())
	require.NoError(t, err)

	finished := logs.FilterMessage("escalation sweep finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, int64(3), finished[0].ContextMap()["scanned"])
	assert.Equal(t, int64(1), finished[0].ContextMap()["notified"])
}

func TestRunOnceFailureIsNotRecorded(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("db down")}
	metrics := observability.NewMetrics()

	sched, err := NewEscalationScheduler(SchedulerOptions{Schedule: "@hourly"}, sweeper, metrics, nil)
	require.NoError(t, err)

	_, err = sched.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Zero(t, metrics.Snapshot().Sweeps)
}

func TestSchedulerHonorsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	sched, err := NewEscalationScheduler(SchedulerOptions{Schedule: "0 9 * * 1-5", Location: loc}, &stubSweeper{}, nil, nil)
	require.NoError(t, err)
	sched.Start()
	defer sched.Stop()

	entries := sched.cron.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Next.In(loc)
	assert.Equal(t, 9, next.Hour())
	assert.NotEqual(t, time.Saturday, next.Weekday())
	assert.NotEqual(t, time.Sunday, next.Weekday())
}

func TestStartNotificationWorkerCountsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop(), false)
	metrics := observability.NewMetrics()

	StartNotificationWorker(dispatcher, nil, metrics)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "t-1"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "t-2"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventUnassignedEscalation, TicketID: "t-1"}))
	dispatcher.Drain()

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Events[string(events.EventTicketCreated)])
	assert.Equal(t, int64(1), snap.Events[string(events.EventUnassignedEscalation)])
}
