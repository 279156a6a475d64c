package llm

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func TestAnalyze_ImageGoesToVisionModel(t *testing.T) {
	fake := &fakeMessages{response: textMessage("Conta de luz da Neoenergia no valor de R$ 4.500,00.")}
	client := newTestClient(fake)

	text, err := client.Analyze(context.Background(), models.MediaImage, "image/jpeg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Contains(t, text, "4.500,00")

	assert.Equal(t, sdk.Model("claude-sonnet-4-20250514"), fake.lastParams.Model)
	require.Len(t, fake.lastParams.Messages, 1)
	blocks := fake.lastParams.Messages[0].Content
	require.Len(t, blocks, 2)
	assert.NotNil(t, blocks[0].OfImage)
	assert.NotNil(t, blocks[1].OfText)
}

func TestAnalyze_PDFDocumentBlock(t *testing.T) {
	fake := &fakeMessages{response: textMessage("Proposta comercial de energia solar.")}
	client := newTestClient(fake)

	_, err := client.Analyze(context.Background(), models.MediaDocument, "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	blocks := fake.lastParams.Messages[0].Content
	require.Len(t, blocks, 2)
	assert.NotNil(t, blocks[0].OfDocument)
}

func TestAnalyze_AudioUnsupported(t *testing.T) {
	fake := &fakeMessages{}
	client := newTestClient(fake)

	_, err := client.Analyze(context.Background(), models.MediaAudio, "audio/ogg", []byte{0x4f})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}
