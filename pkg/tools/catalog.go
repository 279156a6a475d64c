package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/calendar"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/crm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

// LeadStore is the lead persistence surface the catalogue needs.
type LeadStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Lead, error)
	Upsert(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	MergeMetadata(ctx context.Context, id string, patch models.Metadata) error
	UpdateStage(ctx context.Context, id string, stage models.Stage) error
	SetExternalCRMID(ctx context.Context, id, crmID string) error
}

// MessageStore persists messages written by tools.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) (bool, error)
}

// ConversationStore bumps conversation activity.
type ConversationStore interface {
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}

// FollowUpStore schedules and cancels re-engagement timers.
type FollowUpStore interface {
	Schedule(ctx context.Context, fu *models.FollowUp) error
	CancelPending(ctx context.Context, leadID string) error
}

// CRMService is the CRM surface the catalogue needs.
type CRMService interface {
	SearchLeadByPhone(ctx context.Context, phone string) (*crm.Lead, error)
	CreateLead(ctx context.Context, lead *crm.Lead) (int, error)
	UpdateLead(ctx context.Context, lead *crm.Lead) error
	MoveStage(ctx context.Context, leadID int, stageName string) error
	AddNote(ctx context.Context, leadID int, text string) error
	ScheduleActivity(ctx context.Context, leadID int, text string, due time.Time) error
}

// CalendarService is the calendar surface the catalogue needs.
type CalendarService interface {
	CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, event *calendar.Event) error
	CancelEvent(ctx context.Context, eventID string) error
	IsFree(ctx context.Context, start, end time.Time) (bool, error)
}

// MediaDownloader fetches inbound media bytes.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, msg *whatsapp.InboundMessage) ([]byte, error)
}

// Deps wires the catalogue's collaborators.
type Deps struct {
	Leads         LeadStore
	Messages      MessageStore
	Conversations ConversationStore
	FollowUps     FollowUpStore
	CRM           CRMService
	Calendar      CalendarService
	Messenger     whatsapp.Sender
	Downloader    MediaDownloader
	Analyzer      whatsapp.MediaAnalyzer
	Config        *config.Config
	Logger        *slog.Logger
}

// NewCatalogue builds the full tool registry.
func NewCatalogue(deps Deps) (*Registry, error) {
	r := NewRegistry()
	for _, register := range []func(*Registry, Deps) error{
		registerMessagingTools,
		registerStoreTools,
		registerCRMTools,
		registerCalendarTools,
		registerMediaTools,
		registerUtilityTools,
	} {
		if err := register(r, deps); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func registerAll(r *Registry, toolset []*Tool) error {
	for _, t := range toolset {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
