// Package buffer coalesces rapid-fire inbound messages into single turns.
//
// WhatsApp users send thoughts as bursts of short messages. The coalescer
// holds each phone's messages until the sender has been quiet for the
// configured window, then hands the whole burst to the turn handler at once.
// Turns for the same phone never overlap; different phones drain in parallel.
package buffer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

// Handler processes one coalesced turn. The slice is ordered oldest first.
type Handler func(ctx context.Context, phone string, msgs []*whatsapp.InboundMessage)

// Coalescer buffers inbound messages per phone and flushes them after a quiet
// window.
type Coalescer struct {
	cfg     *config.BufferConfig
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*phoneBuffer
	seen    *seenIDs
	stopped bool

	wg       sync.WaitGroup
	stopOnce sync.Once
}

type phoneBuffer struct {
	msgs     []*whatsapp.InboundMessage
	timer    *time.Timer
	due      bool
	draining bool
}

// NewCoalescer creates a Coalescer delivering flushed bursts to handler.
func NewCoalescer(cfg *config.BufferConfig, handler Handler, logger *slog.Logger) *Coalescer {
	return &Coalescer{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "coalescer"),
		pending: make(map[string]*phoneBuffer),
		seen:    newSeenIDs(cfg.DedupSize),
	}
}

// Add buffers one inbound message and (re)starts the phone's quiet window.
// Redelivered message ids are dropped. When a phone exceeds the pending cap
// the oldest buffered message is discarded to bound memory under floods.
func (c *Coalescer) Add(msg *whatsapp.InboundMessage) {
	if msg.ExternalID != "" && !c.seen.Record(msg.ExternalID) {
		c.logger.Debug("Dropped redelivered message",
			"phone", masking.Phone(msg.Phone), "message_id", msg.ExternalID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	pb := c.pending[msg.Phone]
	if pb == nil {
		pb = &phoneBuffer{}
		c.pending[msg.Phone] = pb
	}
	if len(pb.msgs) >= c.cfg.MaxPending {
		c.logger.Warn("Pending cap reached, dropping oldest buffered message",
			"phone", masking.Phone(msg.Phone), "cap", c.cfg.MaxPending)
		pb.msgs = pb.msgs[1:]
	}
	pb.msgs = append(pb.msgs, msg)

	phone := msg.Phone
	if pb.timer != nil {
		pb.timer.Stop()
	}
	pb.timer = time.AfterFunc(c.cfg.Window(), func() { c.flush(phone) })
}

// flush marks the phone due and starts a drain goroutine unless one is
// already running; that goroutine picks up the new batch when it loops.
func (c *Coalescer) flush(phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pb := c.pending[phone]
	if pb == nil {
		return
	}
	pb.due = true
	if pb.draining {
		return
	}
	pb.draining = true
	c.wg.Add(1)
	go c.drain(phone)
}

func (c *Coalescer) drain(phone string) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		pb := c.pending[phone]
		if pb == nil || !pb.due || len(pb.msgs) == 0 {
			if pb != nil {
				pb.draining = false
				pb.due = false
				if len(pb.msgs) == 0 {
					delete(c.pending, phone)
				}
			}
			c.mu.Unlock()
			return
		}
		batch := pb.msgs
		pb.msgs = nil
		pb.due = false
		c.mu.Unlock()

		c.invoke(phone, batch)
	}
}

// invoke runs the handler with panic isolation so one bad turn cannot take
// down the buffer.
func (c *Coalescer) invoke(phone string, batch []*whatsapp.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Turn handler panicked",
				"phone", masking.Phone(phone), "messages", len(batch), "panic", r)
		}
	}()
	c.handler(context.Background(), phone, batch)
}

// Stop flushes every buffered burst immediately and waits for in-flight
// turns to finish. Messages added after Stop are dropped.
func (c *Coalescer) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		phones := make([]string, 0, len(c.pending))
		for phone, pb := range c.pending {
			if pb.timer != nil {
				pb.timer.Stop()
			}
			phones = append(phones, phone)
		}
		c.mu.Unlock()

		for _, phone := range phones {
			c.flush(phone)
		}
		c.wg.Wait()
		c.logger.Info("Coalescer stopped")
	})
}

// PendingCount reports how many messages are currently buffered across all
// phones. Exposed for the stats endpoint.
func (c *Coalescer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, pb := range c.pending {
		total += len(pb.msgs)
	}
	return total
}
