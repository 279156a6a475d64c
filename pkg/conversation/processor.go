package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/agent"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/analysis"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/session"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

// LeadStore is the lead surface the pipeline needs.
type LeadStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Lead, error)
	Upsert(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	MergeMetadata(ctx context.Context, id string, patch models.Metadata) error
	UpdateStage(ctx context.Context, id string, stage models.Stage) error
	UpdateContact(ctx context.Context, id, name, email string) error
}

// ConversationStore upserts the one durable row per phone.
type ConversationStore interface {
	UpsertByPhone(ctx context.Context, phone, leadID string) (*models.Conversation, error)
}

// MessageStore persists and replays the transcript.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) (bool, error)
	Recent(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
}

// Orchestrator runs one agent turn.
type Orchestrator interface {
	Run(ctx context.Context, input agent.Input) (string, error)
}

// Deliverer paces an outbound reply onto the wire.
type Deliverer interface {
	Deliver(ctx context.Context, phone, text string, mood analysis.Mood, firstMessage bool, sender whatsapp.Sender) error
}

// Sessions is the session-manager surface the pipeline needs.
type Sessions interface {
	GetOrCreate(conv *models.Conversation) session.Session
	Update(ctx context.Context, phone string)
	End(ctx context.Context, phone string, state session.State)
}

// MediaDownloader fetches inbound media bytes.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, msg *whatsapp.InboundMessage) ([]byte, error)
}

// Processor handles one coalesced inbound batch end to end. Its HandleBatch
// method is the coalescer's handler, so batches for different phones run
// concurrently while each phone stays serial.
type Processor struct {
	leads         LeadStore
	conversations ConversationStore
	messages      MessageStore
	sessions      Sessions
	agent         Orchestrator
	humanizer     Deliverer
	sender        whatsapp.Sender
	downloader    MediaDownloader
	analyzer      whatsapp.MediaAnalyzer
	agentCfg      *config.AgentConfig
	sessionCfg    *config.SessionConfig
	qualCfg       *config.QualificationConfig
	logger        *slog.Logger
}

// NewProcessor wires the turn pipeline.
func NewProcessor(
	leads LeadStore,
	conversations ConversationStore,
	messages MessageStore,
	sessions Sessions,
	orchestrator Orchestrator,
	humanizer Deliverer,
	sender whatsapp.Sender,
	downloader MediaDownloader,
	analyzer whatsapp.MediaAnalyzer,
	agentCfg *config.AgentConfig,
	sessionCfg *config.SessionConfig,
	qualCfg *config.QualificationConfig,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		leads:         leads,
		conversations: conversations,
		messages:      messages,
		sessions:      sessions,
		agent:         orchestrator,
		humanizer:     humanizer,
		sender:        sender,
		downloader:    downloader,
		analyzer:      analyzer,
		agentCfg:      agentCfg,
		sessionCfg:    sessionCfg,
		qualCfg:       qualCfg,
		logger:        logger.With("component", "conversation"),
	}
}

// HandleBatch processes one coalesced batch under the turn budget. Failures
// never propagate to the coalescer: the lead gets a single short apology and
// the turn ends.
func (p *Processor) HandleBatch(ctx context.Context, phone string, batch []*whatsapp.InboundMessage) {
	logger := p.logger.With("phone", masking.Phone(phone))
	ctx, cancel := context.WithTimeout(ctx, p.agentCfg.TurnBudget())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Turn panicked", "panic", r)
			p.apologize(phone, logger)
		}
	}()

	if err := p.process(ctx, phone, batch, logger); err != nil {
		logger.Error("Turn failed", "error", err)
		p.apologize(phone, logger)
	}
}

// apologize runs outside the (possibly exhausted) turn budget so the lead
// still hears something.
func (p *Processor) apologize(phone string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), p.agentCfg.TurnBudget())
	defer cancel()
	err := p.humanizer.Deliver(ctx, phone, agent.FallbackReply, analysis.MoodNeutral, false, p.sender)
	if err != nil {
		logger.Error("Apology delivery failed", "error", err)
	}
}

func (p *Processor) process(ctx context.Context, phone string, batch []*whatsapp.InboundMessage, logger *slog.Logger) error {
	// Lead and conversation rows are conflict-merge upserts: concurrent first
	// messages for the same phone converge on one row. The WhatsApp push name
	// is deliberately not stored as the lead's name: the agent asks for it.
	lead, err := p.leads.Upsert(ctx, &models.Lead{Phone: phone})
	if err != nil {
		return fmt.Errorf("lead upsert failed: %w", err)
	}
	conv, err := p.conversations.UpsertByPhone(ctx, phone, lead.ID)
	if err != nil {
		return fmt.Errorf("conversation upsert failed: %w", err)
	}
	p.sessions.GetOrCreate(conv)

	currentParts := p.persistInbound(ctx, conv, batch, logger)
	if len(currentParts) == 0 {
		logger.Debug("Batch was entirely redelivered, nothing to do")
		return nil
	}
	currentText := strings.Join(currentParts, "\n")

	recent, err := p.messages.Recent(ctx, conv.ID, p.sessionCfg.RecentMessageLimit)
	if err != nil {
		return fmt.Errorf("history load failed: %w", err)
	}
	firstMessage := !hasOutbound(recent)

	lead, entities := p.applyExtractedEntities(ctx, lead, recent, logger)

	stage := analysis.InferStage(lead)
	qual := analysis.Qualify(lead, recent, p.qualCfg)
	if qual.Disqualified {
		stage = models.StageDisqualified
	}
	if stage != lead.Stage {
		if err := p.leads.UpdateStage(ctx, lead.ID, stage); err != nil {
			logger.Warn("Stage update failed", "stage", stage, "error", err)
		} else {
			lead.Stage = stage
		}
	}

	emotion := analysis.ReadEmotion(recent)
	reasoning := p.agentCfg.ReasoningAutoEnabled() && analysis.ShouldUseReasoning(recent, emotion, stage)

	bundle := &ContextBundle{
		CurrentMessage: currentText,
		Lead:           lead,
		Conversation:   conv,
		Recent:         recent,
		Stage:          stage,
		Qualification:  qual,
		Emotion:        emotion,
		Entities:       entities,
		UseReasoning:   reasoning,
		FirstMessage:   firstMessage,
	}

	reply, runErr := p.agent.Run(ctx, agent.Input{
		Phone:     phone,
		System:    bundle.SystemPrompt(),
		Messages:  bundle.History(),
		Reasoning: reasoning,
	})
	if runErr != nil {
		logger.Warn("Agent fell back", "error", runErr)
	}

	if _, err := p.messages.Insert(ctx, &models.Message{
		ConversationID: conv.ID,
		Phone:          phone,
		Direction:      models.DirectionOutbound,
		Content:        reply,
		MediaType:      models.MediaNone,
	}); err != nil {
		logger.Warn("Outbound message not persisted", "error", err)
	}

	if err := p.humanizer.Deliver(ctx, phone, reply, emotion.Mood(), firstMessage, p.sender); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	p.sessions.Update(ctx, phone)
	p.closeIfScheduled(ctx, phone, logger)
	return nil
}

// persistInbound stores each message of the batch, folding media analysis
// into the stored content. Redelivered messages (same external id) drop out
// here.
func (p *Processor) persistInbound(ctx context.Context, conv *models.Conversation, batch []*whatsapp.InboundMessage, logger *slog.Logger) []string {
	var parts []string
	for _, msg := range batch {
		content := msg.Text
		if msg.MediaType != models.MediaNone {
			if described := p.describeMedia(ctx, msg, logger); described != "" {
				if content != "" {
					content += "\n" + described
				} else {
					content = described
				}
			}
		}
		if content == "" {
			continue
		}

		inserted, err := p.messages.Insert(ctx, &models.Message{
			ConversationID: conv.ID,
			Phone:          conv.Phone,
			Direction:      models.DirectionInbound,
			Content:        content,
			MediaType:      msg.MediaType,
			MediaRef:       msg.MediaRef,
			ExternalID:     msg.ExternalID,
		})
		if err != nil {
			logger.Warn("Inbound message not persisted", "error", err)
			parts = append(parts, content)
			continue
		}
		if inserted {
			parts = append(parts, content)
		}
	}
	return parts
}

func (p *Processor) describeMedia(ctx context.Context, msg *whatsapp.InboundMessage, logger *slog.Logger) string {
	data, err := p.downloader.DownloadMedia(ctx, msg)
	if err != nil {
		logger.Warn("Media download failed", "media_type", msg.MediaType, "error", err)
		return "[mídia recebida, análise indisponível]"
	}
	mime := msg.MimeType
	if mime == "" {
		mime = defaultMime(msg.MediaType)
	}
	text, err := p.analyzer.Analyze(ctx, msg.MediaType, mime, data)
	if err != nil {
		logger.Warn("Media analysis failed", "media_type", msg.MediaType, "error", err)
		return "[mídia recebida, análise indisponível]"
	}
	return "[conteúdo da mídia] " + text
}

// defaultMime is the assumed mime type when the gateway omits one.
func defaultMime(kind models.MediaType) string {
	switch kind {
	case models.MediaImage:
		return "image/jpeg"
	case models.MediaAudio:
		return "audio/ogg"
	case models.MediaDocument:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// applyExtractedEntities folds regex-extracted facts into the lead record,
// never overwriting facts already present.
func (p *Processor) applyExtractedEntities(ctx context.Context, lead *models.Lead, recent []*models.Message, logger *slog.Logger) (*models.Lead, analysis.Entities) {
	ent := analysis.ExtractEntities(inboundOnly(recent))

	patch := models.Metadata{}
	if ent.BillValue > 0 && !lead.Metadata.Has(models.MetaBillValue) {
		patch[models.MetaBillValue] = ent.BillValue
	}
	if ent.PropertyType != "" && !lead.Metadata.Has(models.MetaPropertyType) {
		patch[models.MetaPropertyType] = ent.PropertyType
	}
	if len(ent.Objections) > 0 {
		patch[models.MetaHasObjections] = true
		patch[models.MetaObjections] = ent.Objections
	}
	if len(ent.Phones) > 0 {
		patch[models.MetaAdditionalPhones] = ent.Phones
	}
	if len(ent.Emails) > 0 {
		patch[models.MetaAdditionalEmails] = ent.Emails
	}
	if len(patch) > 0 {
		if err := p.leads.MergeMetadata(ctx, lead.ID, patch); err != nil {
			logger.Warn("Entity metadata merge failed", "error", err)
		} else {
			for k, v := range patch {
				lead.Metadata[k] = v
			}
		}
	}

	if ent.Name != "" && lead.Name == "" {
		if err := p.leads.UpdateContact(ctx, lead.ID, ent.Name, lead.Email); err != nil {
			logger.Warn("Lead name update failed", "error", err)
		} else {
			lead.Name = ent.Name
		}
	}
	return lead, ent
}

// closeIfScheduled completes the session when a meeting got booked during
// the turn.
func (p *Processor) closeIfScheduled(ctx context.Context, phone string, logger *slog.Logger) {
	lead, err := p.leads.GetByPhone(ctx, phone)
	if err != nil {
		logger.Warn("Post-turn lead refresh failed", "error", err)
		return
	}
	if scheduled, _ := lead.Metadata.Bool(models.MetaMeetingScheduled); scheduled {
		p.sessions.End(ctx, phone, session.StateCompleted)
	}
}

func hasOutbound(msgs []*models.Message) bool {
	for _, m := range msgs {
		if m.Direction == models.DirectionOutbound {
			return true
		}
	}
	return false
}

func inboundOnly(msgs []*models.Message) []*models.Message {
	var out []*models.Message
	for _, m := range msgs {
		if m.Direction == models.DirectionInbound {
			out = append(out, m)
		}
	}
	return out
}
