package analysis

import (
	"strings"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// Sentiment buckets the lead's tone.
type Sentiment string

// Sentiment values.
const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Urgency buckets how pressed the lead sounds.
type Urgency string

// Urgency values.
const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Mood selects the outbound pacing persona.
type Mood string

// Moods.
const (
	MoodNeutral      Mood = "neutral"
	MoodEnthusiastic Mood = "enthusiastic"
	MoodEmpathetic   Mood = "empathetic"
	MoodDetermined   Mood = "determined"
)

// EmotionalState is the per-turn read of the lead's disposition.
type EmotionalState struct {
	Interest  int       `json:"interest"` // 1-10
	Urgency   Urgency   `json:"urgency"`
	Sentiment Sentiment `json:"sentiment"`
}

// Lexicons tuned to Brazilian Portuguese WhatsApp vernacular. Matching is
// substring-based over lowercased text, so "otimo" also catches "ótimo" only
// when both spellings are listed.
var (
	positiveWords = []string{
		"ótimo", "otimo", "excelente", "perfeito", "legal", "bacana", "show",
		"adorei", "gostei", "maravilha", "obrigado", "obrigada", "sim", "claro",
		"com certeza", "pode ser", "quero", "interessante", "top", "boa",
	}
	negativeWords = []string{
		"caro", "ruim", "péssimo", "pessimo", "não quero", "nao quero",
		"desisto", "cancelar", "difícil", "dificil", "problema", "golpe",
		"desconfiado", "não confio", "nao confio", "chato", "demora",
	}
	urgencyWords = []string{
		"urgente", "rápido", "rapido", "hoje", "agora", "já", "logo",
		"o quanto antes", "imediato", "preciso muito", "amanhã", "amanha",
	}
	excitementWords = []string{
		"adorei", "incrível", "incrivel", "demais", "quero muito", "top",
		"show", "maravilha", "excelente", "!!",
	}
)

// ReadEmotion derives the emotional state from the last inbound messages and
// the lead's response latency. history is the full recent two-way message
// list in chronological order; only the trailing 10 inbound messages count
// toward the lexicon scan.
func ReadEmotion(history []*models.Message) EmotionalState {
	inbound := lastInbound(history, 10)

	var positive, negative, urgent int
	for _, msg := range inbound {
		text := strings.ToLower(msg.Content)
		for _, w := range positiveWords {
			if strings.Contains(text, w) {
				positive++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(text, w) {
				negative++
			}
		}
		for _, w := range urgencyWords {
			if strings.Contains(text, w) {
				urgent++
			}
		}
	}

	state := EmotionalState{Interest: 5, Urgency: UrgencyLow, Sentiment: SentimentNeutral}

	if positive+negative > 0 {
		ratio := float64(positive) / float64(positive+negative)
		switch {
		case ratio > 0.7:
			state.Sentiment = SentimentPositive
		case ratio < 0.3:
			state.Sentiment = SentimentNegative
		}
		if ratio >= 0.5 {
			state.Interest = 5 + int(3*ratio)
		} else {
			state.Interest = 5 - int(2*(1-ratio))
		}
	}

	switch latency := averageResponseLatency(history); {
	case latency == 0:
	case latency < 5*time.Minute:
		state.Interest++
	case latency > time.Hour:
		state.Interest--
	}
	if state.Interest < 1 {
		state.Interest = 1
	}
	if state.Interest > 10 {
		state.Interest = 10
	}

	switch {
	case urgent >= 2:
		state.Urgency = UrgencyHigh
	case urgent == 1:
		state.Urgency = UrgencyMedium
	}
	return state
}

// Mood maps the emotional read to the outbound pacing persona.
func (s EmotionalState) Mood() Mood {
	switch {
	case s.Sentiment == SentimentNegative:
		return MoodEmpathetic
	case s.Urgency == UrgencyHigh:
		return MoodDetermined
	case s.Sentiment == SentimentPositive && s.Interest >= 7:
		return MoodEnthusiastic
	default:
		return MoodNeutral
	}
}

func lastInbound(history []*models.Message, n int) []*models.Message {
	var inbound []*models.Message
	for _, msg := range history {
		if msg.Direction == models.DirectionInbound {
			inbound = append(inbound, msg)
		}
	}
	if len(inbound) > n {
		inbound = inbound[len(inbound)-n:]
	}
	return inbound
}

// averageResponseLatency averages the gap between each outbound message and
// the inbound message that answers it. Zero means no pair was observed.
func averageResponseLatency(history []*models.Message) time.Duration {
	var total time.Duration
	var pairs int
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if prev.Direction == models.DirectionOutbound && cur.Direction == models.DirectionInbound {
			if gap := cur.CreatedAt.Sub(prev.CreatedAt); gap > 0 {
				total += gap
				pairs++
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / time.Duration(pairs)
}
