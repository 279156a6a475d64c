package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func TestExtractInbound_Text(t *testing.T) {
	raw := `{
		"event": "messages.upsert",
		"instance": "solarprime",
		"data": {
			"key": {"remoteJid": "5511999887766@s.whatsapp.net", "fromMe": false, "id": "BAE5F4A72D1C"},
			"pushName": "Mateus",
			"message": {"conversation": "oi, quero saber sobre energia solar"},
			"messageTimestamp": 1755990000
		}
	}`

	var ev WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	msg, err := ExtractInbound(&ev)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "BAE5F4A72D1C", msg.ExternalID)
	assert.Equal(t, "5511999887766", msg.Phone)
	assert.Equal(t, "Mateus", msg.PushName)
	assert.Equal(t, "oi, quero saber sobre energia solar", msg.Text)
	assert.Equal(t, models.MediaNone, msg.MediaType)
	assert.Equal(t, int64(1755990000), msg.Timestamp.Unix())
}

func TestExtractInbound_ExtendedText(t *testing.T) {
	ev := &WebhookEvent{
		Event: EventMessagesUpsert,
		Data: EventData{
			Key:     MessageKey{RemoteJID: "5511999887766@s.whatsapp.net", ID: "X1"},
			Message: &MessageContent{ExtendedTextMessage: &ExtendedText{Text: "minha conta vem uns 5000"}},
		},
	}

	msg, err := ExtractInbound(ev)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "minha conta vem uns 5000", msg.Text)
}

func TestExtractInbound_ImageWithCaption(t *testing.T) {
	ev := &WebhookEvent{
		Event: EventMessagesUpsert,
		Data: EventData{
			Key:      MessageKey{RemoteJID: "5511999887766@s.whatsapp.net", ID: "IMG1"},
			PushName: "Ana",
			Message: &MessageContent{
				ImageMessage: &MediaEnvelope{
					URL:      "https://mmg.whatsapp.net/d/f/abc123.enc",
					MimeType: "image/jpeg",
					Caption:  "minha conta de luz",
				},
				Base64: "aGVsbG8=",
			},
		},
	}

	msg, err := ExtractInbound(ev)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.MediaImage, msg.MediaType)
	assert.Equal(t, "https://mmg.whatsapp.net/d/f/abc123.enc", msg.MediaRef)
	assert.Equal(t, "aGVsbG8=", msg.MediaB64)
	assert.Equal(t, "minha conta de luz", msg.Caption)
	assert.Equal(t, "minha conta de luz", msg.Text)
}

func TestExtractInbound_Ignored(t *testing.T) {
	tests := []struct {
		name string
		ev   *WebhookEvent
	}{
		{
			name: "wrong event type",
			ev:   &WebhookEvent{Event: EventConnectionUpdate},
		},
		{
			name: "from me",
			ev: &WebhookEvent{
				Event: EventMessagesUpsert,
				Data: EventData{
					Key:     MessageKey{RemoteJID: "5511999887766@s.whatsapp.net", FromMe: true, ID: "M1"},
					Message: &MessageContent{Conversation: "echo"},
				},
			},
		},
		{
			name: "group chat",
			ev: &WebhookEvent{
				Event: EventMessagesUpsert,
				Data: EventData{
					Key:     MessageKey{RemoteJID: "120363041234567890@g.us", ID: "G1"},
					Message: &MessageContent{Conversation: "hi all"},
				},
			},
		},
		{
			name: "no payload",
			ev: &WebhookEvent{
				Event: EventMessagesUpsert,
				Data: EventData{
					Key: MessageKey{RemoteJID: "5511999887766@s.whatsapp.net", ID: "E1"},
				},
			},
		},
		{
			name: "empty content",
			ev: &WebhookEvent{
				Event: EventMessagesUpsert,
				Data: EventData{
					Key:     MessageKey{RemoteJID: "5511999887766@s.whatsapp.net", ID: "E2"},
					Message: &MessageContent{},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ExtractInbound(tt.ev)
			require.NoError(t, err)
			assert.Nil(t, msg)
		})
	}
}
