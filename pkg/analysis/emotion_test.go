package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func TestReadEmotion_Neutral(t *testing.T) {
	state := ReadEmotion(inboundMsgs("ok", "entendi"))
	assert.Equal(t, SentimentNeutral, state.Sentiment)
	assert.Equal(t, 5, state.Interest)
	assert.Equal(t, UrgencyLow, state.Urgency)
}

func TestReadEmotion_Positive(t *testing.T) {
	state := ReadEmotion(inboundMsgs("adorei, que show", "perfeito, quero sim"))
	assert.Equal(t, SentimentPositive, state.Sentiment)
	assert.GreaterOrEqual(t, state.Interest, 7)
}

func TestReadEmotion_Negative(t *testing.T) {
	state := ReadEmotion(inboundMsgs("muito caro isso", "parece golpe, não confio"))
	assert.Equal(t, SentimentNegative, state.Sentiment)
	assert.Less(t, state.Interest, 5)
}

func TestReadEmotion_Urgency(t *testing.T) {
	assert.Equal(t, UrgencyMedium, ReadEmotion(inboundMsgs("preciso resolver hoje")).Urgency)
	assert.Equal(t, UrgencyHigh, ReadEmotion(inboundMsgs("urgente, preciso pra hoje mesmo")).Urgency)
}

func TestReadEmotion_LatencyAdjustment(t *testing.T) {
	base := time.Now()
	fast := []*models.Message{
		{Direction: models.DirectionOutbound, Content: "qual o valor da conta?", CreatedAt: base},
		{Direction: models.DirectionInbound, Content: "uns 4500", CreatedAt: base.Add(time.Minute)},
	}
	assert.Equal(t, 6, ReadEmotion(fast).Interest)

	slow := []*models.Message{
		{Direction: models.DirectionOutbound, Content: "qual o valor da conta?", CreatedAt: base},
		{Direction: models.DirectionInbound, Content: "uns 4500", CreatedAt: base.Add(2 * time.Hour)},
	}
	assert.Equal(t, 4, ReadEmotion(slow).Interest)
}

func TestReadEmotion_OnlyInboundCounts(t *testing.T) {
	history := []*models.Message{
		{Direction: models.DirectionOutbound, Content: "temos uma proposta excelente, perfeita pra você"},
		{Direction: models.DirectionInbound, Content: "ok"},
	}
	assert.Equal(t, SentimentNeutral, ReadEmotion(history).Sentiment)
}

func TestEmotionalState_Mood(t *testing.T) {
	tests := []struct {
		name     string
		state    EmotionalState
		expected Mood
	}{
		{"negative wins", EmotionalState{Sentiment: SentimentNegative, Urgency: UrgencyHigh, Interest: 8}, MoodEmpathetic},
		{"high urgency", EmotionalState{Sentiment: SentimentNeutral, Urgency: UrgencyHigh, Interest: 5}, MoodDetermined},
		{"excited lead", EmotionalState{Sentiment: SentimentPositive, Urgency: UrgencyLow, Interest: 8}, MoodEnthusiastic},
		{"positive but lukewarm", EmotionalState{Sentiment: SentimentPositive, Urgency: UrgencyLow, Interest: 5}, MoodNeutral},
		{"default", EmotionalState{Sentiment: SentimentNeutral, Urgency: UrgencyLow, Interest: 5}, MoodNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.Mood())
		})
	}
}
