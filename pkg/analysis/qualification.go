package analysis

import (
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// Tier is the discount tier a lead's bill value lands in.
type Tier string

// Discount tiers.
const (
	TierNone        Tier = ""
	TierResidential Tier = "residential" // 12-15% discount
	TierCommercial  Tier = "commercial"  // 20% discount
)

// Qualification is the derived view over a lead's collected facts. It is
// recomputed per turn, never stored.
type Qualification struct {
	HighValueBill        bool    `json:"high_value_bill"`
	DecisionMaker        bool    `json:"decision_maker"`
	NoExistingSystem     bool    `json:"no_existing_system"`
	NoActiveContract     bool    `json:"no_active_contract"`
	DemonstratesInterest bool    `json:"demonstrates_interest"`
	Tier                 Tier    `json:"tier,omitempty"`
	Completion           float64 `json:"completion"`
	NextQuestion         string  `json:"next_question,omitempty"`
	Qualified            bool    `json:"qualified"`
	Disqualified         bool    `json:"disqualified"`
}

// Questions the agent is nudged to ask, keyed to the first missing criterion.
const (
	questionBill          = "Quanto vem de conta de luz por mês, mais ou menos?"
	questionDecisionMaker = "Você é quem decide sobre a conta de energia aí?"
	questionOwnPlant      = "Vocês já têm sistema de energia solar instalado?"
	questionContract      = "Hoje você tem contrato vigente com alguma outra empresa de energia?"
	questionAvailability  = "Qual o melhor horário pra gente conversar melhor sobre isso?"
)

// Qualify evaluates the five qualification criteria against the lead's
// metadata and recent inbound history.
func Qualify(lead *models.Lead, inbound []*models.Message, cfg *config.QualificationConfig) Qualification {
	md := lead.Metadata
	var q Qualification

	if bill, ok := md.Float(models.MetaBillValue); ok {
		switch {
		case bill >= cfg.MinBillCommercial:
			q.Tier = TierCommercial
			q.HighValueBill = true
		case bill >= cfg.MinBillResidential:
			q.Tier = TierResidential
			q.HighValueBill = true
		default:
			q.Disqualified = true
		}
	}

	decisor, decisorKnown := md.Bool(models.MetaIsDecisionMaker)
	q.DecisionMaker = decisorKnown && decisor
	if decisorKnown && !decisor {
		if willBring, _ := md.Bool(models.MetaWillBringDecision); !willBring {
			q.Disqualified = true
		}
	}

	ownPlant, _ := md.Bool(models.MetaHasOwnPlant)
	q.NoExistingSystem = !ownPlant
	contract, _ := md.Bool(models.MetaHasActiveContract)
	q.NoActiveContract = !contract

	q.DemonstratesInterest = countInterestSignals(lead, inbound) >= 2

	met := 0
	for _, ok := range []bool{q.HighValueBill, q.DecisionMaker, q.NoExistingSystem, q.NoActiveContract, q.DemonstratesInterest} {
		if ok {
			met++
		}
	}
	q.Completion = float64(met) / 5 * 100
	q.Qualified = met == 5 && !q.Disqualified
	q.NextQuestion = nextQuestion(lead, &q)
	return q
}

// countInterestSignals counts the engagement signals backing the
// demonstrates-interest criterion.
func countInterestSignals(lead *models.Lead, inbound []*models.Message) int {
	signals := 0
	if len(inbound) > 5 {
		signals++
	}

	askedQuestion := false
	excited := false
	providedDocs := false
	for _, msg := range inbound {
		if strings.Contains(msg.Content, "?") {
			askedQuestion = true
		}
		if containsAny(strings.ToLower(msg.Content), excitementWords) {
			excited = true
		}
		if msg.MediaType == models.MediaDocument || msg.MediaType == models.MediaImage {
			providedDocs = true
		}
	}
	if docs, _ := lead.Metadata.Bool(models.MetaDocumentsProvided); docs {
		providedDocs = true
	}

	if askedQuestion {
		signals++
	}
	if excited {
		signals++
	}
	if providedDocs {
		signals++
	}
	if lead.Metadata.Has(models.MetaMeetingAvailable) {
		signals++
	}
	return signals
}

func nextQuestion(lead *models.Lead, q *Qualification) string {
	md := lead.Metadata
	switch {
	case q.Disqualified:
		return ""
	case !md.Has(models.MetaBillValue):
		return questionBill
	case !md.Has(models.MetaIsDecisionMaker):
		return questionDecisionMaker
	case !md.Has(models.MetaHasOwnPlant):
		return questionOwnPlant
	case !md.Has(models.MetaHasActiveContract):
		return questionContract
	case !md.Has(models.MetaMeetingAvailable):
		return questionAvailability
	default:
		return ""
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
