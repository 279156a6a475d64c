// Package scheduler is the follow-up worker: it claims due re-engagement
// rows from the store, composes the nudge, delivers it through the humanizer
// and queues the next hop of the cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/analysis"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

const (
	// claimLease is how far a claimed row's scheduled_for gets pushed. A
	// crashed worker's rows simply come due again after the lease.
	claimLease = 5 * time.Minute
	claimLimit = 20
	tickBudget = 2 * time.Minute
)

// FollowUpStore is the durable queue surface the worker needs.
type FollowUpStore interface {
	ClaimDue(ctx context.Context, lease time.Duration, limit int) ([]*models.FollowUp, error)
	MarkExecuted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	MarkSkipped(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, at time.Time) error
	Schedule(ctx context.Context, fu *models.FollowUp) error
}

// LeadStore resolves the lead a follow-up belongs to.
type LeadStore interface {
	GetByID(ctx context.Context, id string) (*models.Lead, error)
}

// TextCompleter composes nudge copy on the cheap model tier.
type TextCompleter interface {
	CompleteText(ctx context.Context, system, prompt string) (string, error)
}

// Deliverer paces the nudge onto the wire.
type Deliverer interface {
	Deliver(ctx context.Context, phone, text string, mood analysis.Mood, firstMessage bool, sender whatsapp.Sender) error
}

// Worker polls for due follow-ups on a cron cadence.
type Worker struct {
	followUps FollowUpStore
	leads     LeadStore
	llm       TextCompleter
	humanizer Deliverer
	sender    whatsapp.Sender
	cfg       *config.FollowUpConfig
	hours     *businessHours
	logger    *slog.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// NewWorker wires the follow-up worker.
func NewWorker(followUps FollowUpStore, leads LeadStore, llm TextCompleter, humanizer Deliverer, sender whatsapp.Sender, cfg *config.FollowUpConfig, logger *slog.Logger) (*Worker, error) {
	hours, err := newBusinessHours(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid business hours config: %w", err)
	}
	return &Worker{
		followUps: followUps,
		leads:     leads,
		llm:       llm,
		humanizer: humanizer,
		sender:    sender,
		cfg:       cfg,
		hours:     hours,
		logger:    logger.With("component", "scheduler"),
		cron:      cron.New(),
		now:       time.Now,
	}, nil
}

// Start begins polling.
func (w *Worker) Start() error {
	spec := fmt.Sprintf("@every %s", w.cfg.PollInterval())
	if _, err := w.cron.AddFunc(spec, w.tick); err != nil {
		return fmt.Errorf("failed to schedule follow-up poll: %w", err)
	}
	w.cron.Start()
	w.logger.Info("Follow-up worker started", "interval", w.cfg.PollInterval())
	return nil
}

// Stop halts polling and waits for a running tick to finish.
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("Follow-up worker stopped")
}

func (w *Worker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickBudget)
	defer cancel()

	due, err := w.followUps.ClaimDue(ctx, claimLease, claimLimit)
	if err != nil {
		w.logger.Error("Failed to claim due follow-ups", "error", err)
		return
	}
	for _, fu := range due {
		w.execute(ctx, fu)
	}
}

func (w *Worker) execute(ctx context.Context, fu *models.FollowUp) {
	logger := w.logger.With("follow_up_id", fu.ID, "type", fu.Type)

	lead, err := w.leads.GetByID(ctx, fu.LeadID)
	if err != nil {
		logger.Error("Lead lookup failed", "error", err)
		w.finishFailed(ctx, fu.ID, fmt.Sprintf("lead lookup: %v", err), logger)
		return
	}
	logger = logger.With("phone", masking.Phone(lead.Phone))

	if scheduled, _ := lead.Metadata.Bool(models.MetaMeetingScheduled); scheduled || lead.Stage == models.StageDisqualified {
		logger.Info("Follow-up skipped", "stage", lead.Stage, "meeting_scheduled", scheduled)
		if err := w.followUps.MarkSkipped(ctx, fu.ID); err != nil {
			logger.Error("Failed to mark follow-up skipped", "error", err)
		}
		return
	}

	now := w.now()
	if !w.hours.contains(now) {
		at := w.hours.nextWindowStart(now)
		logger.Info("Outside business hours, pushed to next window", "at", at)
		if err := w.followUps.Reschedule(ctx, fu.ID, at); err != nil {
			logger.Error("Failed to reschedule follow-up", "error", err)
		}
		return
	}

	text, err := w.compose(ctx, fu, lead)
	if err != nil {
		logger.Error("Nudge composition failed", "error", err)
		w.finishFailed(ctx, fu.ID, fmt.Sprintf("compose: %v", err), logger)
		return
	}
	if err := w.humanizer.Deliver(ctx, lead.Phone, text, analysis.MoodNeutral, false, w.sender); err != nil {
		logger.Error("Nudge delivery failed", "error", err)
		w.finishFailed(ctx, fu.ID, fmt.Sprintf("deliver: %v", err), logger)
		return
	}

	if err := w.followUps.MarkExecuted(ctx, fu.ID); err != nil {
		logger.Error("Failed to mark follow-up executed", "error", err)
		return
	}
	logger.Info("Follow-up delivered")
	w.scheduleNextHop(ctx, fu, logger)
}

func (w *Worker) finishFailed(ctx context.Context, id, msg string, logger *slog.Logger) {
	if err := w.followUps.MarkFailed(ctx, id, msg); err != nil {
		logger.Error("Failed to mark follow-up failed", "error", err)
	}
}

// scheduleNextHop queues the next step of the cadence. The chain ends at the
// nurture hop or at the configured attempt cap, whichever comes first; after
// that the lead rests.
func (w *Worker) scheduleNextHop(ctx context.Context, fu *models.FollowUp, logger *slog.Logger) {
	next := models.NextFollowUpType(fu.Type)
	if next == "" {
		return
	}
	if w.cfg.MaxAttempts > 0 && fu.AttemptNumber >= w.cfg.MaxAttempts {
		logger.Info("Follow-up attempt cap reached", "attempts", fu.AttemptNumber)
		return
	}
	err := w.followUps.Schedule(ctx, &models.FollowUp{
		LeadID:        fu.LeadID,
		Type:          next,
		ScheduledFor:  w.now().Add(w.delayFor(next)),
		AttemptNumber: fu.AttemptNumber + 1,
	})
	if err != nil {
		logger.Warn("Next cadence hop not scheduled", "next", next, "error", err)
	}
}

func (w *Worker) delayFor(t models.FollowUpType) time.Duration {
	switch t {
	case models.FollowUpReminder:
		return w.cfg.FirstDelay()
	case models.FollowUpCheckIn:
		return w.cfg.SecondDelay()
	case models.FollowUpReengagement:
		return w.cfg.ThirdDelay()
	default:
		return w.cfg.FourthDelay()
	}
}

// compose returns the override verbatim or asks the cheap model tier for a
// short nudge, truncated to two sentences either way the model misbehaves.
func (w *Worker) compose(ctx context.Context, fu *models.FollowUp, lead *models.Lead) (string, error) {
	if fu.MessageOverride != "" {
		return fu.MessageOverride, nil
	}

	name := lead.Name
	if name == "" {
		name = "o lead"
	}
	system := "Você é Helen, consultora de energia solar da SolarPrime. " +
		"Escreva uma mensagem curta de WhatsApp em português brasileiro, no máximo duas frases, sem saudação formal."
	prompt := fmt.Sprintf("Escreva um %s para %s, que parou de responder durante a conversa sobre economia na conta de luz.",
		nudgeStyle(fu.Type), name)

	text, err := w.llm.CompleteText(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	return truncateSentences(strings.TrimSpace(text), 2), nil
}

func nudgeStyle(t models.FollowUpType) string {
	switch t {
	case models.FollowUpReminder:
		return "lembrete leve"
	case models.FollowUpCheckIn:
		return "acompanhamento amigável"
	case models.FollowUpReengagement:
		return "convite para retomar a conversa"
	default:
		return "conteúdo útil sobre economia de energia"
	}
}

// truncateSentences keeps at most n sentences, cutting at ., ! or ?.
func truncateSentences(text string, n int) string {
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return text
}
