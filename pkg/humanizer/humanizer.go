// Package humanizer turns a single agent reply into a paced sequence of
// WhatsApp sends: chunked at natural break points, delivered with typing
// indicators and pauses sized so the conversation reads as human.
package humanizer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/analysis"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

// semanticChance is how often the semantic chunker is preferred over the
// length-based fallback.
const semanticChance = 0.6

// Chunk is one outbound send with its pacing envelope.
type Chunk struct {
	PrePause  time.Duration
	Typing    time.Duration
	Text      string
	PostPause time.Duration
}

// Plan is the ordered delivery plan for one reply.
type Plan struct {
	Chunks []Chunk
}

// Humanizer plans and executes paced outbound delivery.
type Humanizer struct {
	cfg    *config.HumanizerConfig
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Humanizer.
func New(cfg *config.HumanizerConfig, logger *slog.Logger) *Humanizer {
	return &Humanizer{
		cfg:    cfg,
		logger: logger.With("component", "humanizer"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Plan splits a reply into paced chunks for the given mood. firstMessage
// marks the very first reply ever sent to this phone, which opens slower.
func (h *Humanizer) Plan(text string, mood analysis.Mood, firstMessage bool) Plan {
	text = FormatForWhatsApp(text)
	if text == "" {
		return Plan{}
	}
	profile := profileFor(mood)

	var raw []string
	if h.chance(semanticChance) {
		raw = h.chunkSemantic(text)
	} else {
		raw = h.chunkByLength(text)
	}
	raw = h.normalizeChunks(raw)

	var withTypos []string
	for _, chunk := range raw {
		withTypos = append(withTypos, h.maybeTypo(chunk, profile)...)
	}

	plan := Plan{Chunks: make([]Chunk, 0, len(withTypos))}
	for i, chunk := range withTypos {
		plan.Chunks = append(plan.Chunks, Chunk{
			PrePause:  h.prePause(i, firstMessage, profile),
			Typing:    h.typingDelay(chunk, profile),
			Text:      chunk,
			PostPause: h.postPause(chunk, profile),
		})
	}
	return plan
}

// Execute delivers a plan sequentially: pause, show typing, send, pause.
// Chunk k+1 is never sent before chunk k's send returned. A gateway error
// aborts the remainder and is returned to the caller; no internal retry.
func (h *Humanizer) Execute(ctx context.Context, plan Plan, phone string, sender whatsapp.Sender) error {
	for i, chunk := range plan.Chunks {
		if err := sleepCtx(ctx, chunk.PrePause); err != nil {
			return err
		}
		if err := sender.SendTyping(ctx, phone, chunk.Typing); err != nil {
			// Presence is cosmetic; delivery continues without it.
			h.logger.Warn("Typing indicator failed", "phone", masking.Phone(phone), "error", err)
		}
		if err := sleepCtx(ctx, chunk.Typing); err != nil {
			return err
		}
		if err := sender.SendText(ctx, phone, chunk.Text); err != nil {
			return fmt.Errorf("failed to deliver chunk %d/%d: %w", i+1, len(plan.Chunks), err)
		}
		if err := sleepCtx(ctx, chunk.PostPause); err != nil {
			return err
		}
	}
	return nil
}

// Deliver is the common plan-then-execute path.
func (h *Humanizer) Deliver(ctx context.Context, phone, text string, mood analysis.Mood, firstMessage bool, sender whatsapp.Sender) error {
	plan := h.Plan(text, mood, firstMessage)
	return h.Execute(ctx, plan, phone, sender)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// chance returns true with probability p.
func (h *Humanizer) chance(p float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64() < p
}

// between returns a uniform value in [lo, hi).
func (h *Humanizer) between(lo, hi float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo + h.rng.Float64()*(hi-lo)
}

func (h *Humanizer) intn(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Intn(n)
}
