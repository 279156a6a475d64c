package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func TestInferStage(t *testing.T) {
	tests := []struct {
		name     string
		lead     *models.Lead
		expected models.Stage
	}{
		{
			name:     "no facts at all",
			lead:     &models.Lead{Metadata: models.Metadata{}},
			expected: models.StageInitialContact,
		},
		{
			name:     "name only",
			lead:     &models.Lead{Name: "Ana", Metadata: models.Metadata{}},
			expected: models.StageIdentification,
		},
		{
			name: "bill value collected",
			lead: &models.Lead{Name: "Ana", Metadata: models.Metadata{
				models.MetaBillValue: 4500.0,
			}},
			expected: models.StageQualification,
		},
		{
			name: "decision maker known",
			lead: &models.Lead{Name: "Ana", Metadata: models.Metadata{
				models.MetaBillValue:       4500.0,
				models.MetaIsDecisionMaker: true,
			}},
			expected: models.StageDiscovery,
		},
		{
			name: "solution interest stated",
			lead: &models.Lead{Metadata: models.Metadata{
				models.MetaBillValue:        4500.0,
				models.MetaIsDecisionMaker:  true,
				models.MetaSolutionInterest: "assinatura",
			}},
			expected: models.StagePresentation,
		},
		{
			name: "availability given",
			lead: &models.Lead{Metadata: models.Metadata{
				models.MetaSolutionInterest: "assinatura",
				models.MetaMeetingAvailable: "amanhã 14h",
			}},
			expected: models.StageScheduling,
		},
		{
			name: "open objection outranks scheduling",
			lead: &models.Lead{Metadata: models.Metadata{
				models.MetaMeetingAvailable: "amanhã 14h",
				models.MetaHasObjections:    true,
			}},
			expected: models.StageObjectionHandling,
		},
		{
			name: "handled objection falls through",
			lead: &models.Lead{Metadata: models.Metadata{
				models.MetaMeetingAvailable:  "amanhã 14h",
				models.MetaHasObjections:     true,
				models.MetaObjectionsHandled: true,
			}},
			expected: models.StageScheduling,
		},
		{
			name: "meeting booked outranks everything",
			lead: &models.Lead{Metadata: models.Metadata{
				models.MetaMeetingScheduled: true,
				models.MetaHasObjections:    true,
			}},
			expected: models.StageFollowUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferStage(tt.lead))
		})
	}
}
