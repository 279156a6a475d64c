// Package analysis derives conversation insight from a lead's collected facts
// and recent message history: funnel stage, qualification progress, emotional
// read, extracted entities, and whether the agent should think harder.
package analysis

import (
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// InferStage derives the funnel stage from the facts collected so far.
// Rules are ordered: the first match wins, so a booked meeting outranks an
// open objection, which outranks everything collected earlier in the funnel.
func InferStage(lead *models.Lead) models.Stage {
	md := lead.Metadata

	if scheduled, _ := md.Bool(models.MetaMeetingScheduled); scheduled {
		return models.StageFollowUp
	}
	hasObjections, _ := md.Bool(models.MetaHasObjections)
	handled, _ := md.Bool(models.MetaObjectionsHandled)
	if hasObjections && !handled {
		return models.StageObjectionHandling
	}
	if md.Has(models.MetaMeetingAvailable) {
		return models.StageScheduling
	}
	if md.Has(models.MetaSolutionInterest) {
		return models.StagePresentation
	}
	if md.Has(models.MetaIsDecisionMaker) {
		return models.StageDiscovery
	}
	if md.Has(models.MetaBillValue) {
		return models.StageQualification
	}
	if lead.Name != "" {
		return models.StageIdentification
	}
	return models.StageInitialContact
}
