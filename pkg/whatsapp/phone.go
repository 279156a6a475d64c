// Package whatsapp talks to the WhatsApp HTTP gateway and decodes its webhook
// envelope.
package whatsapp

import (
	"errors"
	"strings"
)

// DefaultCountryCode is prefixed to numbers that arrive without one.
const DefaultCountryCode = "55"

// JID suffixes used by the gateway.
const (
	userJIDSuffix  = "@s.whatsapp.net"
	groupJIDSuffix = "@g.us"
)

// ErrGroupJID marks events scoped to a group chat; the engine only handles
// direct conversations.
var ErrGroupJID = errors.New("whatsapp: group-scoped jid")

var errTooShort = errors.New("whatsapp: phone too short")

// IsGroupJID reports whether a remote JID addresses a group chat.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, groupJIDSuffix)
}

// CanonicalPhone normalizes a remote JID or raw number to the digits-only,
// country-prefixed form used as the engine's sharding key.
//
// Handles device-suffixed JIDs ("5511999887766:24@s.whatsapp.net") and bare
// numbers ("11999887766" → "5511999887766").
func CanonicalPhone(raw string) (string, error) {
	if IsGroupJID(raw) {
		return "", ErrGroupJID
	}

	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	if colon := strings.IndexByte(raw, ':'); colon >= 0 {
		raw = raw[:colon]
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()
	if len(phone) < 8 {
		return "", errTooShort
	}
	if !strings.HasPrefix(phone, DefaultCountryCode) || len(phone) < 12 {
		// Local numbers (DDD + 8-9 digits) get the country prefix.
		if len(phone) <= 11 {
			phone = DefaultCountryCode + phone
		}
	}
	return phone, nil
}

// ToJID formats a canonical phone as the gateway's recipient identifier.
func ToJID(phone string) string {
	return phone + userJIDSuffix
}
