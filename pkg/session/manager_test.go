package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/store"
)

type touchRecorder struct {
	mu      sync.Mutex
	touched []string
	done    chan struct{}
}

func newTouchRecorder() *touchRecorder {
	return &touchRecorder{done: make(chan struct{}, 128)}
}

func (r *touchRecorder) TouchLastMessage(_ context.Context, id string, _ time.Time) error {
	r.mu.Lock()
	r.touched = append(r.touched, id)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

type scheduleRecorder struct {
	mu        sync.Mutex
	scheduled []*models.FollowUp
	pending   bool
}

func (r *scheduleRecorder) Schedule(_ context.Context, fu *models.FollowUp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending {
		return store.ErrFollowUpPending
	}
	r.scheduled = append(r.scheduled, fu)
	return nil
}

func sessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		TimeoutMin:       30,
		IdleWarningMin:   20,
		MaxDurationHours: 2,
		MaxMessages:      100,
		SweepIntervalSec: 60,
	}
}

type managerFixture struct {
	m       *Manager
	touches *touchRecorder
	fus     *scheduleRecorder
	clock   time.Time
}

func newFixture(t *testing.T, onIdle IdleNotifier) *managerFixture {
	t.Helper()
	f := &managerFixture{
		touches: newTouchRecorder(),
		fus:     &scheduleRecorder{},
		clock:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}
	f.m = NewManager(sessionConfig(), 30*time.Minute, f.touches, f.fus, onIdle,
		slog.New(slog.DiscardHandler))
	f.m.now = func() time.Time { return f.clock }
	return f
}

func (f *managerFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func conv(phone string, lastMessage time.Time) *models.Conversation {
	return &models.Conversation{
		ID:            "conv-" + phone,
		Phone:         phone,
		LeadID:        "lead-" + phone,
		LastMessageAt: lastMessage,
	}
}

func TestGetOrCreate_Fresh(t *testing.T) {
	f := newFixture(t, nil)

	s := f.m.GetOrCreate(conv("5511999887766", time.Time{}))
	assert.Equal(t, StateActive, s.State)
	assert.Nil(t, s.ResumedAt)
	assert.Equal(t, "conv-5511999887766", s.ConversationID)
	assert.Equal(t, 1, f.m.Count())
}

func TestGetOrCreate_ResumesWithinWindow(t *testing.T) {
	f := newFixture(t, nil)

	s := f.m.GetOrCreate(conv("5511999887766", f.clock.Add(-10*time.Minute)))
	require.NotNil(t, s.ResumedAt)
	assert.Equal(t, StateActive, s.State)
}

func TestGetOrCreate_NoResumeBeyondWindow(t *testing.T) {
	f := newFixture(t, nil)

	s := f.m.GetOrCreate(conv("5511999887766", f.clock.Add(-45*time.Minute)))
	assert.Nil(t, s.ResumedAt)
}

func TestGetOrCreate_ReturnsLiveSession(t *testing.T) {
	f := newFixture(t, nil)
	c := conv("5511999887766", time.Time{})

	first := f.m.GetOrCreate(c)
	f.advance(5 * time.Minute)
	second := f.m.GetOrCreate(c)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, f.clock, second.LastActivity)
	assert.Equal(t, 1, f.m.Count())
}

func TestUpdate_BumpsCountAndTouchesConversation(t *testing.T) {
	f := newFixture(t, nil)
	c := conv("5511999887766", time.Time{})
	f.m.GetOrCreate(c)

	f.m.Update(context.Background(), c.Phone)

	select {
	case <-f.touches.done:
	case <-time.After(2 * time.Second):
		t.Fatal("conversation was never touched")
	}
	f.touches.mu.Lock()
	defer f.touches.mu.Unlock()
	assert.Equal(t, []string{"conv-5511999887766"}, f.touches.touched)
}

func TestSweep_ExpiresIdleSessionAndSchedulesReminder(t *testing.T) {
	f := newFixture(t, nil)
	f.m.GetOrCreate(conv("5511999887766", time.Time{}))

	f.advance(31 * time.Minute)
	f.m.sweep(context.Background())

	assert.Equal(t, 0, f.m.Count())
	require.Len(t, f.fus.scheduled, 1)
	fu := f.fus.scheduled[0]
	assert.Equal(t, "lead-5511999887766", fu.LeadID)
	assert.Equal(t, models.FollowUpReminder, fu.Type)
	assert.Equal(t, f.clock.Add(30*time.Minute), fu.ScheduledFor)
}

func TestSweep_AbandonsAtMessageCeiling(t *testing.T) {
	f := newFixture(t, nil)
	c := conv("5511999887766", time.Time{})
	f.m.GetOrCreate(c)
	for i := 0; i < 100; i++ {
		f.m.Update(context.Background(), c.Phone)
	}
	f.m.sweep(context.Background())

	assert.Equal(t, 0, f.m.Count())
	assert.Len(t, f.fus.scheduled, 1)
}

func TestSweep_IdleWarningFiresOnce(t *testing.T) {
	var warned []string
	f := newFixture(t, func(_ context.Context, phone string) {
		warned = append(warned, phone)
	})
	f.m.GetOrCreate(conv("5511999887766", time.Time{}))

	f.advance(21 * time.Minute)
	f.m.sweep(context.Background())
	f.m.sweep(context.Background())

	assert.Equal(t, []string{"5511999887766"}, warned)
	assert.Equal(t, 1, f.m.Count())
}

func TestUpdate_ClearsIdleWarning(t *testing.T) {
	var warned int
	f := newFixture(t, func(context.Context, string) { warned++ })
	c := conv("5511999887766", time.Time{})
	f.m.GetOrCreate(c)

	f.advance(21 * time.Minute)
	f.m.sweep(context.Background())
	require.Equal(t, 1, warned)

	f.m.Update(context.Background(), c.Phone)
	f.advance(21 * time.Minute)
	f.m.sweep(context.Background())
	assert.Equal(t, 2, warned)
}

func TestEnd_CompletedSchedulesNothing(t *testing.T) {
	f := newFixture(t, nil)
	c := conv("5511999887766", time.Time{})
	f.m.GetOrCreate(c)

	f.m.End(context.Background(), c.Phone, StateCompleted)

	assert.Equal(t, 0, f.m.Count())
	assert.Empty(t, f.fus.scheduled)
}

func TestEnd_AbandonedSchedulesReminder(t *testing.T) {
	f := newFixture(t, nil)
	c := conv("5511999887766", time.Time{})
	f.m.GetOrCreate(c)

	f.m.End(context.Background(), c.Phone, StateAbandoned)

	assert.Len(t, f.fus.scheduled, 1)
}

func TestScheduleReminder_PendingConflictTolerated(t *testing.T) {
	f := newFixture(t, nil)
	f.fus.pending = true
	c := conv("5511999887766", time.Time{})
	f.m.GetOrCreate(c)

	// Must not panic or retry; the pending hop already covers the lead.
	f.m.End(context.Background(), c.Phone, StateExpired)
	assert.Empty(t, f.fus.scheduled)
}
