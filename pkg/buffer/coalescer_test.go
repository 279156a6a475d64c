package buffer

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

type turnRecorder struct {
	mu    sync.Mutex
	turns []recordedTurn
	done  chan struct{}
}

type recordedTurn struct {
	phone string
	texts []string
}

func newTurnRecorder() *turnRecorder {
	return &turnRecorder{done: make(chan struct{}, 16)}
}

func (r *turnRecorder) handle(_ context.Context, phone string, msgs []*whatsapp.InboundMessage) {
	r.mu.Lock()
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Text
	}
	r.turns = append(r.turns, recordedTurn{phone: phone, texts: texts})
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *turnRecorder) waitForTurn(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a coalesced turn")
	}
}

func (r *turnRecorder) recorded() []recordedTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedTurn, len(r.turns))
	copy(out, r.turns)
	return out
}

func testBufferConfig() *config.BufferConfig {
	return &config.BufferConfig{WindowMs: 30, MaxPending: 20, DedupSize: 1000}
}

func msg(phone, id, text string) *whatsapp.InboundMessage {
	return &whatsapp.InboundMessage{Phone: phone, ExternalID: id, Text: text}
}

func TestCoalescer_BurstBecomesOneTurn(t *testing.T) {
	rec := newTurnRecorder()
	c := NewCoalescer(testBufferConfig(), rec.handle, slog.New(slog.DiscardHandler))
	defer c.Stop()

	c.Add(msg("5511999887766", "m1", "oi"))
	c.Add(msg("5511999887766", "m2", "quero saber de energia solar"))
	c.Add(msg("5511999887766", "m3", "minha conta ta alta"))

	rec.waitForTurn(t)
	turns := rec.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, "5511999887766", turns[0].phone)
	assert.Equal(t, []string{"oi", "quero saber de energia solar", "minha conta ta alta"}, turns[0].texts)
}

func TestCoalescer_WindowResetsOnNewMessage(t *testing.T) {
	rec := newTurnRecorder()
	cfg := &config.BufferConfig{WindowMs: 60, MaxPending: 20, DedupSize: 1000}
	c := NewCoalescer(cfg, rec.handle, slog.New(slog.DiscardHandler))
	defer c.Stop()

	c.Add(msg("5511999887766", "m1", "primeira"))
	time.Sleep(30 * time.Millisecond)
	c.Add(msg("5511999887766", "m2", "segunda"))

	rec.waitForTurn(t)
	turns := rec.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"primeira", "segunda"}, turns[0].texts)
}

func TestCoalescer_PhonesDrainIndependently(t *testing.T) {
	rec := newTurnRecorder()
	c := NewCoalescer(testBufferConfig(), rec.handle, slog.New(slog.DiscardHandler))
	defer c.Stop()

	c.Add(msg("5511999887766", "a1", "oi"))
	c.Add(msg("5521988776655", "b1", "bom dia"))

	rec.waitForTurn(t)
	rec.waitForTurn(t)
	turns := rec.recorded()
	require.Len(t, turns, 2)
	phones := map[string]bool{}
	for _, turn := range turns {
		phones[turn.phone] = true
	}
	assert.True(t, phones["5511999887766"])
	assert.True(t, phones["5521988776655"])
}

func TestCoalescer_DropsRedeliveredIDs(t *testing.T) {
	rec := newTurnRecorder()
	c := NewCoalescer(testBufferConfig(), rec.handle, slog.New(slog.DiscardHandler))
	defer c.Stop()

	c.Add(msg("5511999887766", "m1", "oi"))
	c.Add(msg("5511999887766", "m1", "oi"))

	rec.waitForTurn(t)
	turns := rec.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"oi"}, turns[0].texts)
}

func TestCoalescer_PendingCapDropsOldest(t *testing.T) {
	rec := newTurnRecorder()
	cfg := &config.BufferConfig{WindowMs: 40, MaxPending: 3, DedupSize: 1000}
	c := NewCoalescer(cfg, rec.handle, slog.New(slog.DiscardHandler))
	defer c.Stop()

	c.Add(msg("5511999887766", "m1", "um"))
	c.Add(msg("5511999887766", "m2", "dois"))
	c.Add(msg("5511999887766", "m3", "tres"))
	c.Add(msg("5511999887766", "m4", "quatro"))

	rec.waitForTurn(t)
	turns := rec.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"dois", "tres", "quatro"}, turns[0].texts)
}

func TestCoalescer_HandlerPanicIsContained(t *testing.T) {
	var calls int
	var mu sync.Mutex
	done := make(chan struct{}, 4)

	handler := func(_ context.Context, _ string, _ []*whatsapp.InboundMessage) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		done <- struct{}{}
		if n == 1 {
			panic("boom")
		}
	}
	c := NewCoalescer(testBufferConfig(), handler, slog.New(slog.DiscardHandler))
	defer c.Stop()

	c.Add(msg("5511999887766", "m1", "primeira"))
	<-done
	c.Add(msg("5511999887766", "m2", "segunda"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coalescer stopped draining after a handler panic")
	}
}

func TestCoalescer_StopFlushesPending(t *testing.T) {
	rec := newTurnRecorder()
	cfg := &config.BufferConfig{WindowMs: 10_000, MaxPending: 20, DedupSize: 1000}
	c := NewCoalescer(cfg, rec.handle, slog.New(slog.DiscardHandler))

	c.Add(msg("5511999887766", "m1", "oi"))
	c.Stop()

	turns := rec.recorded()
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"oi"}, turns[0].texts)
}

func TestSeenIDs_EvictsOldest(t *testing.T) {
	s := newSeenIDs(2)
	assert.True(t, s.Record("a"))
	assert.True(t, s.Record("b"))
	assert.False(t, s.Record("a"))
	assert.True(t, s.Record("c")) // evicts a
	assert.True(t, s.Record("a"))
}
