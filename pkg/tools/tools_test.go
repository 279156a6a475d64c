package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/calendar"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/crm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/store"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

type fakeLeads struct {
	leads   map[string]*models.Lead
	patches map[string]models.Metadata
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{leads: map[string]*models.Lead{}, patches: map[string]models.Metadata{}}
}

func (f *fakeLeads) GetByPhone(_ context.Context, phone string) (*models.Lead, error) {
	if lead, ok := f.leads[phone]; ok {
		return lead, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeLeads) Upsert(_ context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.ID == "" {
		lead.ID = "lead-" + lead.Phone
	}
	f.leads[lead.Phone] = lead
	return lead, nil
}

func (f *fakeLeads) MergeMetadata(_ context.Context, id string, patch models.Metadata) error {
	existing := f.patches[id]
	if existing == nil {
		existing = models.Metadata{}
	}
	for k, v := range patch {
		existing[k] = v
	}
	f.patches[id] = existing
	return nil
}

func (f *fakeLeads) UpdateStage(_ context.Context, _ string, _ models.Stage) error { return nil }
func (f *fakeLeads) SetExternalCRMID(_ context.Context, _, _ string) error         { return nil }

type fakeFollowUps struct {
	scheduled []*models.FollowUp
	cancelled []string
	pending   bool
}

func (f *fakeFollowUps) Schedule(_ context.Context, fu *models.FollowUp) error {
	if f.pending {
		return store.ErrFollowUpPending
	}
	fu.ID = "fu-1"
	f.scheduled = append(f.scheduled, fu)
	return nil
}

func (f *fakeFollowUps) CancelPending(_ context.Context, leadID string) error {
	f.cancelled = append(f.cancelled, leadID)
	return nil
}

type fakeCalendar struct {
	created   []*calendar.Event
	cancelled []string
}

func (f *fakeCalendar) CreateEvent(_ context.Context, event *calendar.Event) (*calendar.Event, error) {
	out := *event
	out.ID = "evt-1"
	out.MeetingURL = "https://meet.example.com/abc"
	f.created = append(f.created, &out)
	return &out, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _ *calendar.Event) error { return nil }
func (f *fakeCalendar) CancelEvent(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}
func (f *fakeCalendar) IsFree(_ context.Context, _, _ time.Time) (bool, error) { return true, nil }

type fakeCRM struct {
	existing *crm.Lead
	created  []*crm.Lead
	updated  []*crm.Lead
}

func (f *fakeCRM) SearchLeadByPhone(_ context.Context, _ string) (*crm.Lead, error) {
	if f.existing == nil {
		return nil, crm.ErrLeadNotFound
	}
	return f.existing, nil
}

func (f *fakeCRM) CreateLead(_ context.Context, lead *crm.Lead) (int, error) {
	f.created = append(f.created, lead)
	return 99, nil
}

func (f *fakeCRM) UpdateLead(_ context.Context, lead *crm.Lead) error {
	f.updated = append(f.updated, lead)
	return nil
}

func (f *fakeCRM) MoveStage(_ context.Context, _ int, _ string) error { return nil }
func (f *fakeCRM) AddNote(_ context.Context, _ int, _ string) error   { return nil }
func (f *fakeCRM) ScheduleActivity(_ context.Context, _ int, _ string, _ time.Time) error {
	return nil
}

type fakeSender struct {
	texts []string
}

func (f *fakeSender) SendText(_ context.Context, _ string, text string) error {
	f.texts = append(f.texts, text)
	return nil
}
func (f *fakeSender) SendMedia(_ context.Context, _ string, _ models.MediaType, _, _ string) error {
	return nil
}
func (f *fakeSender) SendTyping(_ context.Context, _ string, _ time.Duration) error { return nil }

type fakeMessages struct{ inserted []*models.Message }

func (f *fakeMessages) Insert(_ context.Context, msg *models.Message) (bool, error) {
	f.inserted = append(f.inserted, msg)
	return true, nil
}

type fakeConversations struct{ touched []string }

func (f *fakeConversations) TouchLastMessage(_ context.Context, id string, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeDownloader struct{ data []byte }

func (f *fakeDownloader) DownloadMedia(_ context.Context, _ *whatsapp.InboundMessage) ([]byte, error) {
	return f.data, nil
}

type fakeAnalyzer struct{ text string }

func (f *fakeAnalyzer) Analyze(_ context.Context, _ models.MediaType, _ string, _ []byte) (string, error) {
	return f.text, nil
}

type catalogueFakes struct {
	leads     *fakeLeads
	followUps *fakeFollowUps
	cal       *fakeCalendar
	crm       *fakeCRM
	sender    *fakeSender
}

func newCatalogue(t *testing.T) (*Registry, *catalogueFakes) {
	t.Helper()
	fakes := &catalogueFakes{
		leads:     newFakeLeads(),
		followUps: &fakeFollowUps{},
		cal:       &fakeCalendar{},
		crm:       &fakeCRM{},
		sender:    &fakeSender{},
	}
	r, err := NewCatalogue(Deps{
		Leads:         fakes.leads,
		Messages:      &fakeMessages{},
		Conversations: &fakeConversations{},
		FollowUps:     fakes.followUps,
		CRM:           fakes.crm,
		Calendar:      fakes.cal,
		Messenger:     fakes.sender,
		Downloader:    &fakeDownloader{data: []byte("bytes")},
		Analyzer:      &fakeAnalyzer{text: "conta de R$ 4.500,00"},
		Logger:        slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	return r, fakes
}

func invoke(t *testing.T, r *Registry, name, input string) string {
	t.Helper()
	tool, ok := r.Get(name)
	require.True(t, ok, "tool %s not registered", name)
	out, err := tool.Invoke(context.Background(), json.RawMessage(input))
	require.NoError(t, err)
	return out
}

func TestCatalogue_RegistersFullToolset(t *testing.T) {
	r, _ := newCatalogue(t)
	defs := r.Defs()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}

	for _, expected := range []string{
		"send_text", "send_media", "send_typing",
		"get_lead", "create_or_update_lead", "save_message", "update_conversation", "schedule_follow_up",
		"crm_search_lead", "crm_upsert_lead", "crm_move_stage", "crm_add_note", "crm_schedule_activity",
		"check_availability", "create_meeting", "update_meeting", "cancel_meeting", "send_invite",
		"analyze_image", "transcribe_audio", "extract_document_text",
		"validate_phone", "format_currency",
	} {
		assert.Contains(t, names, expected)
	}
	// Defs are sorted for prompt stability.
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	tool := &Tool{Name: "x", Invoke: func(context.Context, json.RawMessage) (string, error) { return "", nil }}
	require.NoError(t, r.Register(tool))
	require.Error(t, r.Register(tool))
}

func TestGetLead_NotFound(t *testing.T) {
	r, _ := newCatalogue(t)
	out := invoke(t, r, "get_lead", `{"phone":"5511999887766"}`)
	assert.JSONEq(t, `{"found":false}`, out)
}

func TestCreateOrUpdateLead(t *testing.T) {
	r, fakes := newCatalogue(t)
	out := invoke(t, r, "create_or_update_lead",
		`{"phone":"5511999887766","name":"Ana","metadata":{"valor_conta":4500}}`)
	assert.Contains(t, out, "lead-5511999887766")
	require.Contains(t, fakes.leads.leads, "5511999887766")
	assert.Equal(t, "Ana", fakes.leads.leads["5511999887766"].Name)
}

func TestCreateMeeting_MarksLeadAndCancelsFollowUps(t *testing.T) {
	r, fakes := newCatalogue(t)
	out := invoke(t, r, "create_meeting", `{
		"lead_id": "lead-1",
		"title": "Reunião SolarPrime",
		"start": "2026-08-25T17:00:00Z",
		"end": "2026-08-25T17:30:00Z",
		"attendees": ["a@b.com"]
	}`)

	assert.Contains(t, out, "evt-1")
	require.Len(t, fakes.cal.created, 1)
	assert.Equal(t, []string{"lead-1"}, fakes.followUps.cancelled)
	patch := fakes.leads.patches["lead-1"]
	require.NotNil(t, patch)
	assert.Equal(t, true, patch[models.MetaMeetingScheduled])
}

func TestCRMUpsertLead_CreatesWhenAbsent(t *testing.T) {
	r, fakes := newCatalogue(t)
	out := invoke(t, r, "crm_upsert_lead", `{"phone":"5511999887766","name":"Ana - Solar"}`)
	assert.JSONEq(t, `{"id":99}`, out)
	assert.Len(t, fakes.crm.created, 1)
	assert.Empty(t, fakes.crm.updated)
}

func TestCRMUpsertLead_UpgradesToUpdateOnConflict(t *testing.T) {
	r, fakes := newCatalogue(t)
	fakes.crm.existing = &crm.Lead{ID: 42, Name: "Ana"}

	out := invoke(t, r, "crm_upsert_lead", `{"phone":"5511999887766","name":"Ana - Solar"}`)
	assert.JSONEq(t, `{"id":42}`, out)
	assert.Empty(t, fakes.crm.created)
	require.Len(t, fakes.crm.updated, 1)
	assert.Equal(t, 42, fakes.crm.updated[0].ID)
}

func TestScheduleFollowUp_PendingConflict(t *testing.T) {
	r, fakes := newCatalogue(t)
	fakes.followUps.pending = true

	out := invoke(t, r, "schedule_follow_up", `{"lead_id":"lead-1","type":"reminder","delay_minutes":30}`)
	assert.Contains(t, out, `"scheduled":false`)
}

func TestAnalyzeImage(t *testing.T) {
	r, _ := newCatalogue(t)
	out := invoke(t, r, "analyze_image", `{"message_id":"IMG1"}`)
	assert.Contains(t, out, "4.500,00")
}

func TestValidatePhone(t *testing.T) {
	r, _ := newCatalogue(t)
	out := invoke(t, r, "validate_phone", `{"phone":"(11) 99988-7766"}`)
	assert.JSONEq(t, `{"valid":true,"phone":"5511999887766"}`, out)

	out = invoke(t, r, "validate_phone", `{"phone":"abc"}`)
	assert.JSONEq(t, `{"valid":false}`, out)
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{4500, "R$ 4.500,00"},
		{450.5, "R$ 450,50"},
		{1234567.89, "R$ 1.234.567,89"},
		{0, "R$ 0,00"},
		{-99.9, "-R$ 99,90"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatBRL(tt.value))
	}
}
