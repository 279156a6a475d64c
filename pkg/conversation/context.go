// Package conversation assembles the per-turn context bundle and drives the
// inbound turn pipeline: persist, analyze, run the agent, humanize, deliver.
package conversation

import (
	"fmt"
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/analysis"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/llm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// ContextBundle is everything the agent sees for one turn. It is rebuilt
// from the store on every turn; no model-side memory is relied upon.
type ContextBundle struct {
	CurrentMessage string
	Lead           *models.Lead
	Conversation   *models.Conversation
	Recent         []*models.Message
	Stage          models.Stage
	Qualification  analysis.Qualification
	Emotion        analysis.EmotionalState
	Entities       analysis.Entities
	UseReasoning   bool
	FirstMessage   bool
}

// History converts the recent message list into the chat shape the model
// consumes. Consecutive same-role messages are merged so the transcript
// always alternates.
func (b *ContextBundle) History() []llm.Message {
	var out []llm.Message
	for _, msg := range b.Recent {
		role := llm.RoleUser
		if msg.Direction == models.DirectionOutbound {
			role = llm.RoleAssistant
		}
		content := msg.Content
		if content == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Text += "\n" + content
			continue
		}
		out = append(out, llm.Message{Role: role, Text: content})
	}
	// The transcript must open with the user and close with the user for the
	// completion to be well-formed.
	for len(out) > 0 && out[0].Role != llm.RoleUser {
		out = out[1:]
	}
	if n := len(out); n == 0 || out[n-1].Role != llm.RoleUser {
		out = append(out, llm.Message{Role: llm.RoleUser, Text: b.CurrentMessage})
	}
	return out
}

// SystemPrompt renders the bundle into the instruction block for the model.
// The static persona lines are intentionally short; the bulk of the prompt
// is the live qualification state.
func (b *ContextBundle) SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("Você é Helen, consultora de energia solar da SolarPrime, conversando por WhatsApp.\n")
	sb.WriteString("Escreva em português brasileiro, tom caloroso e direto, mensagens curtas como uma pessoa real.\n")
	sb.WriteString("Seu objetivo é qualificar o lead e agendar uma reunião com o time comercial.\n")
	sb.WriteString("Use as ferramentas disponíveis para consultar e registrar dados; nunca invente valores.\n\n")

	lead := b.Lead
	sb.WriteString("## Lead\n")
	if lead.Name != "" {
		fmt.Fprintf(&sb, "Nome: %s\n", lead.Name)
	} else {
		sb.WriteString("Nome: ainda não informado\n")
	}
	fmt.Fprintf(&sb, "Telefone: %s\n", lead.Phone)
	fmt.Fprintf(&sb, "Etapa do funil: %s\n", b.Stage)
	if bill, ok := lead.Metadata.Float(models.MetaBillValue); ok {
		fmt.Fprintf(&sb, "Conta de luz mensal: R$ %.2f\n", bill)
	}
	if prop, ok := lead.Metadata.String(models.MetaPropertyType); ok {
		fmt.Fprintf(&sb, "Tipo de imóvel: %s\n", prop)
	}

	q := b.Qualification
	sb.WriteString("\n## Qualificação\n")
	fmt.Fprintf(&sb, "Progresso: %.0f%%\n", q.Completion)
	switch {
	case q.Disqualified:
		sb.WriteString("Situação: desqualificado. Encerre com gentileza, sem insistir.\n")
	case q.Qualified:
		sb.WriteString("Situação: qualificado! Conduza para o agendamento da reunião.\n")
	case q.NextQuestion != "":
		fmt.Fprintf(&sb, "Próxima pergunta sugerida: %s\n", q.NextQuestion)
	}
	if q.Tier == analysis.TierCommercial {
		sb.WriteString("Faixa comercial: desconto de 20%.\n")
	} else if q.Tier == analysis.TierResidential {
		sb.WriteString("Faixa residencial: desconto de 12% a 15%.\n")
	}

	e := b.Emotion
	sb.WriteString("\n## Leitura emocional\n")
	fmt.Fprintf(&sb, "Interesse: %d/10, urgência: %s, sentimento: %s\n", e.Interest, e.Urgency, e.Sentiment)
	if len(b.Entities.Objections) > 0 {
		fmt.Fprintf(&sb, "Objeções detectadas: %s\n", strings.Join(b.Entities.Objections, ", "))
	}

	if b.FirstMessage {
		sb.WriteString("\nEsta é a primeira resposta para este lead: apresente-se e pergunte o nome.\n")
	}
	return sb.String()
}
