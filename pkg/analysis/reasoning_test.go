package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func TestShouldUseReasoning(t *testing.T) {
	neutral := EmotionalState{Interest: 5, Sentiment: SentimentNeutral, Urgency: UrgencyLow}
	lowInterest := EmotionalState{Interest: 2, Sentiment: SentimentNegative, Urgency: UrgencyLow}

	tests := []struct {
		name     string
		history  []*models.Message
		state    EmotionalState
		stage    models.Stage
		expected bool
	}{
		{
			name:     "calm small talk stays on fast path",
			history:  inboundMsgs("oi", "tudo bem?"),
			state:    neutral,
			stage:    models.StageInitialContact,
			expected: false,
		},
		{
			name:     "single signal is not enough",
			history:  inboundMsgs("como funciona a instalação?"),
			state:    neutral,
			stage:    models.StageQualification,
			expected: false,
		},
		{
			name:     "technical questions plus question volume",
			history:  inboundMsgs("como funciona a garantia?", "e a manutenção?", "quem faz a instalação?"),
			state:    neutral,
			stage:    models.StageQualification,
			expected: true,
		},
		{
			name:     "comparison during objection handling",
			history:  inboundMsgs("qual a diferença pra outra empresa que me procurou"),
			state:    neutral,
			stage:    models.StageObjectionHandling,
			expected: true,
		},
		{
			name:     "discovery stage alone is one signal",
			history:  inboundMsgs("entendi"),
			state:    neutral,
			stage:    models.StageDiscovery,
			expected: false,
		},
		{
			name:     "low interest with engagement during discovery",
			history:  inboundMsgs("hm", "sei la", "talvez"),
			state:    lowInterest,
			stage:    models.StageDiscovery,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldUseReasoning(tt.history, tt.state, tt.stage))
		})
	}
}
