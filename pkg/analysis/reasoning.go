package analysis

import (
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

var technicalObjectionWords = []string{
	"como funciona", "garantia", "manutenção", "manutencao", "instalação",
	"instalacao", "inversor", "painel", "placa solar", "kwh", "quilowatt",
	"rede elétrica", "rede eletrica", "apagão", "apagao", "homologação",
	"homologacao", "aneel",
}

var comparisonWords = []string{
	"vs", "versus", "melhor que", "diferença", "diferenca", "comparado",
	"comparar", "concorrente", "outra empresa", "outro fornecedor",
}

// ShouldUseReasoning decides whether the agent should run this turn in deep
// reasoning mode. Two or more of the five signals must fire; reasoning is
// slower, so single weak signals stay on the fast path.
func ShouldUseReasoning(history []*models.Message, state EmotionalState, stage models.Stage) bool {
	inbound := lastInbound(history, 10)

	questionMarks := 0
	technical := false
	comparison := false
	for _, msg := range inbound {
		questionMarks += strings.Count(msg.Content, "?")
		lower := strings.ToLower(msg.Content)
		if containsAny(lower, technicalObjectionWords) {
			technical = true
		}
		if containsAny(lower, comparisonWords) {
			comparison = true
		}
	}

	signals := 0
	if questionMarks >= 3 {
		signals++
	}
	if technical {
		signals++
	}
	if comparison {
		signals++
	}
	if state.Interest <= 3 && len(inbound) >= 3 {
		signals++
	}
	if stage == models.StageObjectionHandling || stage == models.StageDiscovery {
		signals++
	}
	return signals >= 2
}
