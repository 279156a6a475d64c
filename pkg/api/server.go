// Package api exposes the engine's HTTP surface: the WhatsApp gateway
// webhook plus health and stats endpoints.
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/database"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

const healthTimeout = 5 * time.Second

// signatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const signatureHeader = "X-Webhook-Signature"

// Enqueuer accepts inbound messages for coalescing.
type Enqueuer interface {
	Add(msg *whatsapp.InboundMessage)
	PendingCount() int
}

// ConnectionChecker reports the gateway link state.
type ConnectionChecker interface {
	ConnectionStatus(ctx context.Context) (whatsapp.ConnectionState, error)
}

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Count() int
}

// Server is the HTTP layer. All heavy lifting happens downstream; the
// webhook handler only authenticates, decodes and enqueues.
type Server struct {
	cfg      *config.WebhookConfig
	db       *sql.DB
	buffer   Enqueuer
	gateway  ConnectionChecker
	sessions SessionCounter
	logger   *slog.Logger

	eventsReceived   atomic.Int64
	messagesEnqueued atomic.Int64
	eventsIgnored    atomic.Int64
	authFailures     atomic.Int64
	decodeFailures   atomic.Int64

	// Last connection state reported by the gateway's own events, as opposed
	// to the live poll /healthz does.
	lastGatewayState atomic.Value
}

// NewServer creates the HTTP layer.
func NewServer(cfg *config.WebhookConfig, db *sql.DB, buffer Enqueuer, gateway ConnectionChecker, sessions SessionCounter, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		buffer:   buffer,
		gateway:  gateway,
		sessions: sessions,
		logger:   logger.With("component", "api"),
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/webhook", s.Webhook)
	router.GET("/healthz", s.Health)
	router.GET("/stats", s.Stats)
	return router
}

// Webhook handles POST /webhook. It answers 200 even on internal failures:
// the upstream gateway redelivers on anything else, amplifying load exactly
// when the engine is struggling.
func (s *Server) Webhook(c *gin.Context) {
	s.eventsReceived.Add(1)

	if !s.allowedIP(c.ClientIP()) {
		s.authFailures.Add(1)
		s.logger.Warn("Webhook from unlisted IP", "ip", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.decodeFailures.Add(1)
		s.logger.Warn("Webhook body read failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if !s.validSignature(body, c.GetHeader(signatureHeader)) {
		s.authFailures.Add(1)
		s.logger.Warn("Webhook signature mismatch", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event whatsapp.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.decodeFailures.Add(1)
		s.logger.Warn("Webhook decode failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if event.Event == whatsapp.EventConnectionUpdate || event.Event == whatsapp.EventQRCodeUpdated {
		s.trackGatewayState(&event)
		s.eventsIgnored.Add(1)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	msg, err := whatsapp.ExtractInbound(&event)
	if err != nil {
		s.eventsIgnored.Add(1)
		s.logger.Debug("Webhook event not processable", "event", event.Event, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if msg == nil {
		s.eventsIgnored.Add(1)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	s.buffer.Add(msg)
	s.messagesEnqueued.Add(1)
	s.logger.Debug("Inbound message enqueued", "phone", masking.Phone(msg.Phone),
		"media_type", msg.MediaType)
	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}

// Health handles GET /healthz: database reachability plus the WhatsApp link
// state.
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
			"error":    err.Error(),
		})
		return
	}

	state, err := s.gateway.ConnectionStatus(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
			"gateway":  "unreachable",
			"error":    err.Error(),
		})
		return
	}

	status := http.StatusOK
	overall := "healthy"
	if state != whatsapp.ConnectionOpen {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	resp := gin.H{
		"status":   overall,
		"database": dbHealth,
		"gateway":  state,
	}
	if last := s.lastKnownGatewayState(); last != "" {
		resp["gateway_last_event"] = last
	}
	c.JSON(status, resp)
}

// Stats handles GET /stats.
func (s *Server) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"events_received":    s.eventsReceived.Load(),
		"messages_enqueued":  s.messagesEnqueued.Load(),
		"events_ignored":     s.eventsIgnored.Load(),
		"auth_failures":      s.authFailures.Load(),
		"decode_failures":    s.decodeFailures.Load(),
		"buffer_pending":     s.buffer.PendingCount(),
		"active_sessions":    s.sessions.Count(),
		"gateway_last_state": s.lastKnownGatewayState(),
	})
}

// trackGatewayState records the connection state the gateway pushes through
// its own lifecycle events. A QR code update means the instance lost its
// pairing and is waiting for a new scan.
func (s *Server) trackGatewayState(event *whatsapp.WebhookEvent) {
	state := event.Data.State
	if state == "" && event.Event == whatsapp.EventQRCodeUpdated {
		state = "connecting"
	}
	if state == "" {
		return
	}
	s.lastGatewayState.Store(state)
	s.logger.Info("Gateway state event", "event", event.Event, "state", state)
}

func (s *Server) lastKnownGatewayState() string {
	if v := s.lastGatewayState.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (s *Server) allowedIP(ip string) bool {
	if len(s.cfg.AllowlistIPs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowlistIPs {
		if ip == allowed {
			return true
		}
	}
	return false
}

// validSignature checks the hex HMAC-SHA256 of the body. An empty configured
// secret disables the check (local development).
func (s *Server) validSignature(body []byte, signature string) bool {
	if s.cfg.Secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
