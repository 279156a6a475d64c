// Package session keeps the ephemeral per-phone conversation state: one
// in-memory record per active phone, resumed from the durable conversation
// row when the lead comes back inside the session window, and swept in the
// background when it goes stale.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// State of a session.
type State string

// Session states. Active sessions accept turns; idle ones accepted a warning
// but still accept turns; the rest are terminal.
const (
	StateActive    State = "active"
	StateIdle      State = "idle"
	StateExpired   State = "expired"
	StateCompleted State = "completed"
	StateAbandoned State = "abandoned"
)

// Session is the in-memory execution state for one phone. Callers receive
// copies; the manager owns the live record.
type Session struct {
	Phone          string
	ConversationID string
	LeadID         string
	State          State
	CreatedAt      time.Time
	LastActivity   time.Time
	ResumedAt      *time.Time
	MessageCount   int

	idleWarned bool
}

// ConversationToucher bumps the durable conversation row's activity stamp.
type ConversationToucher interface {
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}

// FollowUpScheduler enqueues the re-engagement nudge when a session dies
// without a meeting.
type FollowUpScheduler interface {
	Schedule(ctx context.Context, fu *models.FollowUp) error
}

// IdleNotifier is called once per session when the idle-warning threshold is
// crossed. May be nil.
type IdleNotifier func(ctx context.Context, phone string)

// Manager owns the session map and its background sweeper.
type Manager struct {
	cfg           *config.SessionConfig
	reminderDelay time.Duration
	conversations ConversationToucher
	followUps     FollowUpScheduler
	onIdle        IdleNotifier
	logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewManager creates the manager. reminderDelay is how far out the
// re-engagement reminder lands when a session expires or is abandoned.
func NewManager(cfg *config.SessionConfig, reminderDelay time.Duration, conversations ConversationToucher, followUps FollowUpScheduler, onIdle IdleNotifier, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:           cfg,
		reminderDelay: reminderDelay,
		conversations: conversations,
		followUps:     followUps,
		onIdle:        onIdle,
		logger:        logger.With("component", "session"),
		sessions:      make(map[string]*Session),
		stopCh:        make(chan struct{}),
		now:           time.Now,
	}
}

// Start launches the background sweeper.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.SweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep(context.Background())
			case <-m.stopCh:
				return
			}
		}
	}()
	m.logger.Info("Session sweeper started", "interval", m.cfg.SweepInterval())
}

// Stop halts the sweeper and waits for it.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// GetOrCreate returns the session for the conversation's phone, creating or
// resuming one as needed. A resume happens when no live session exists but
// the durable conversation saw a message inside the session window.
func (m *Manager) GetOrCreate(conv *models.Conversation) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s, ok := m.sessions[conv.Phone]; ok && m.valid(s, now) {
		s.LastActivity = now
		return *s
	}

	s := &Session{
		Phone:          conv.Phone,
		ConversationID: conv.ID,
		LeadID:         conv.LeadID,
		State:          StateActive,
		CreatedAt:      now,
		LastActivity:   now,
	}
	if !conv.LastMessageAt.IsZero() && now.Sub(conv.LastMessageAt) < m.cfg.Timeout() {
		resumed := now
		s.ResumedAt = &resumed
		m.logger.Debug("Session resumed", "phone", masking.Phone(conv.Phone))
	}
	m.sessions[conv.Phone] = s
	return *s
}

// Update records one processed turn: bumps the counters and asynchronously
// stamps the durable conversation row.
func (m *Manager) Update(ctx context.Context, phone string) {
	m.mu.Lock()
	s, ok := m.sessions[phone]
	if !ok {
		m.mu.Unlock()
		return
	}
	now := m.now()
	s.LastActivity = now
	s.MessageCount++
	s.idleWarned = false
	if s.State == StateIdle {
		s.State = StateActive
	}
	conversationID := s.ConversationID
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.conversations.TouchLastMessage(ctx, conversationID, now); err != nil {
			m.logger.Warn("Conversation activity stamp failed",
				"phone", masking.Phone(phone), "error", err)
		}
	}()
}

// End terminates the session explicitly. Completed sessions (meeting booked,
// hand-off) get no follow-up; abandoned ones do.
func (m *Manager) End(ctx context.Context, phone string, state State) {
	m.mu.Lock()
	s, ok := m.sessions[phone]
	if ok {
		delete(m.sessions, phone)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	s.State = state
	m.logger.Info("Session ended", "phone", masking.Phone(phone), "state", state,
		"messages", s.MessageCount)
	if state == StateExpired || state == StateAbandoned {
		m.scheduleReminder(ctx, s)
	}
}

// Count returns the number of live sessions. Used by the stats endpoint.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) valid(s *Session, now time.Time) bool {
	if s.State != StateActive && s.State != StateIdle {
		return false
	}
	if now.Sub(s.LastActivity) >= m.cfg.Timeout() {
		return false
	}
	if now.Sub(s.CreatedAt) >= m.cfg.MaxDuration() {
		return false
	}
	if s.MessageCount >= m.cfg.MaxMessages {
		return false
	}
	return true
}

// sweep ends every invalid session and issues idle warnings for sessions
// approaching the timeout.
func (m *Manager) sweep(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	var expired, abandoned []*Session
	var toWarn []string
	for phone, s := range m.sessions {
		switch {
		case now.Sub(s.LastActivity) >= m.cfg.Timeout():
			s.State = StateExpired
			expired = append(expired, s)
			delete(m.sessions, phone)
		case now.Sub(s.CreatedAt) >= m.cfg.MaxDuration() || s.MessageCount >= m.cfg.MaxMessages:
			s.State = StateAbandoned
			abandoned = append(abandoned, s)
			delete(m.sessions, phone)
		case now.Sub(s.LastActivity) >= m.cfg.IdleWarning() && !s.idleWarned:
			s.idleWarned = true
			s.State = StateIdle
			toWarn = append(toWarn, phone)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.logger.Info("Session expired", "phone", masking.Phone(s.Phone))
		m.scheduleReminder(ctx, s)
	}
	for _, s := range abandoned {
		m.logger.Info("Session abandoned", "phone", masking.Phone(s.Phone),
			"messages", s.MessageCount)
		m.scheduleReminder(ctx, s)
	}
	if m.onIdle != nil {
		for _, phone := range toWarn {
			m.onIdle(ctx, phone)
		}
	}
}

func (m *Manager) scheduleReminder(ctx context.Context, s *Session) {
	if s.LeadID == "" {
		return
	}
	err := m.followUps.Schedule(ctx, &models.FollowUp{
		LeadID:       s.LeadID,
		Type:         models.FollowUpReminder,
		ScheduledFor: m.now().Add(m.reminderDelay),
	})
	if err != nil {
		// ErrFollowUpPending lands here too: an earlier hop is already queued,
		// which is exactly the "at most one pending" rule working.
		m.logger.Debug("Reminder not scheduled", "phone", masking.Phone(s.Phone), "error", err)
	}
}
