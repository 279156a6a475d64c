package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

const analyzeMaxTokens = 512

// ErrUnsupportedMedia is returned for payloads the vision model cannot read,
// notably voice notes: the Messages API takes images and PDFs only.
var ErrUnsupportedMedia = errors.New("llm: media type not supported for analysis")

const analyzeSystem = "Você analisa mídias recebidas por uma consultora de energia solar no WhatsApp. " +
	"Responda em português brasileiro, em no máximo três frases objetivas."

const analyzePrompt = "Descreva o conteúdo desta mídia. Se for uma conta de luz, " +
	"informe o valor total, a distribuidora e o consumo em kWh quando visíveis."

// Analyze implements whatsapp.MediaAnalyzer: images and PDF documents go to
// the vision model as base64 blocks and come back as a short description the
// agent can fold into the conversation.
func (c *AnthropicClient) Analyze(ctx context.Context, kind models.MediaType, mimeType string, data []byte) (string, error) {
	block, err := mediaBlock(kind, mimeType, data)
	if err != nil {
		return "", err
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: analyzeMaxTokens,
		System:    []sdk.TextBlockParam{{Text: analyzeSystem}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(block, sdk.NewTextBlock(analyzePrompt)),
		},
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}
	text := strings.TrimSpace(decodeResponse(msg).Text)
	if text == "" {
		return "", errors.New("llm: empty analysis response")
	}
	return text, nil
}

func mediaBlock(kind models.MediaType, mimeType string, data []byte) (sdk.ContentBlockParamUnion, error) {
	encoded := base64.StdEncoding.EncodeToString(data)
	switch {
	case kind == models.MediaImage || strings.HasPrefix(mimeType, "image/"):
		return sdk.NewImageBlockBase64(mimeType, encoded), nil
	case kind == models.MediaDocument && mimeType == "application/pdf":
		return sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: encoded}), nil
	default:
		return sdk.ContentBlockParamUnion{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedMedia, kind, mimeType)
	}
}
