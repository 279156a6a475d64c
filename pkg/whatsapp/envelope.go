package whatsapp

import (
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// Webhook event names emitted by the gateway.
const (
	EventMessagesUpsert   = "messages.upsert"
	EventConnectionUpdate = "connection.update"
	EventQRCodeUpdated    = "qrcode.updated"
)

// WebhookEvent is the top-level gateway envelope. Data varies per event; the
// fields below cover the events the engine consumes and unknown events decode
// into zero values and are ignored upstream.
type WebhookEvent struct {
	Event    string    `json:"event"`
	Instance string    `json:"instance"`
	Data     EventData `json:"data"`
}

// EventData is the union of the per-event payload shapes.
type EventData struct {
	Key              MessageKey      `json:"key"`
	PushName         string          `json:"pushName"`
	Message          *MessageContent `json:"message"`
	MessageTimestamp int64           `json:"messageTimestamp"`

	// connection.update
	State string `json:"state"`
}

// MessageKey identifies a message within the gateway.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// MessageContent carries the typed payload variants. Exactly one of the
// pointers is set for media messages; plain text arrives in Conversation or
// ExtendedTextMessage.
type MessageContent struct {
	Conversation        string         `json:"conversation"`
	ExtendedTextMessage *ExtendedText  `json:"extendedTextMessage"`
	ImageMessage        *MediaEnvelope `json:"imageMessage"`
	AudioMessage        *MediaEnvelope `json:"audioMessage"`
	DocumentMessage     *MediaEnvelope `json:"documentMessage"`
	Base64              string         `json:"base64"`
}

// ExtendedText is the gateway's quoted/linked text variant.
type ExtendedText struct {
	Text string `json:"text"`
}

// MediaEnvelope describes an attached media payload.
type MediaEnvelope struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Caption  string `json:"caption"`
	FileName string `json:"fileName"`
}

// InboundMessage is the canonical form handed to the rest of the engine.
type InboundMessage struct {
	ExternalID string
	Phone      string
	PushName   string
	Text       string
	MediaType  models.MediaType
	MediaRef   string
	MediaB64   string
	MimeType   string
	Caption    string
	Timestamp  time.Time
}

// ExtractInbound converts a messages.upsert event into the canonical inbound
// form. It returns (nil, nil) for events the engine does not act on: other
// event types, group chats, messages sent by the engine itself (fromMe), and
// payloads with neither text nor media.
func ExtractInbound(ev *WebhookEvent) (*InboundMessage, error) {
	if ev.Event != EventMessagesUpsert || ev.Data.Key.FromMe || ev.Data.Message == nil {
		return nil, nil
	}

	phone, err := CanonicalPhone(ev.Data.Key.RemoteJID)
	if err != nil {
		if err == ErrGroupJID {
			return nil, nil
		}
		return nil, err
	}

	msg := &InboundMessage{
		ExternalID: ev.Data.Key.ID,
		Phone:      phone,
		PushName:   ev.Data.PushName,
		MediaType:  models.MediaNone,
		Timestamp:  time.Unix(ev.Data.MessageTimestamp, 0).UTC(),
	}
	if ev.Data.MessageTimestamp == 0 {
		msg.Timestamp = time.Now().UTC()
	}

	content := ev.Data.Message
	switch {
	case content.Conversation != "":
		msg.Text = content.Conversation
	case content.ExtendedTextMessage != nil:
		msg.Text = content.ExtendedTextMessage.Text
	case content.ImageMessage != nil:
		fillMedia(msg, models.MediaImage, content.ImageMessage, content.Base64)
	case content.AudioMessage != nil:
		fillMedia(msg, models.MediaAudio, content.AudioMessage, content.Base64)
	case content.DocumentMessage != nil:
		fillMedia(msg, models.MediaDocument, content.DocumentMessage, content.Base64)
	default:
		return nil, nil
	}
	return msg, nil
}

func fillMedia(msg *InboundMessage, kind models.MediaType, media *MediaEnvelope, b64 string) {
	msg.MediaType = kind
	msg.MediaRef = media.URL
	msg.MediaB64 = b64
	msg.MimeType = media.MimeType
	msg.Caption = media.Caption
	msg.Text = media.Caption
}
