package agent

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"regexp"
	"strconv"
	"time"
)

const (
	maxAttempts = 3
	backoffBase = time.Second
	backoffCap  = 10 * time.Second
)

var statusRe = regexp.MustCompile(`status (\d{3})`)

// retryable reports whether a failed tool call is worth repeating: timeouts,
// network faults, rate limiting, and upstream 5xx. Anything else is treated
// as a hard failure the model should hear about instead.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code == 429 || code >= 500
	}
	return false
}

// backoffDelay is exponential from backoffBase with ±50% jitter, capped.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase << (attempt - 1)
	if delay > backoffCap {
		delay = backoffCap
	}
	jitter := 0.5 + rand.Float64()
	delay = time.Duration(float64(delay) * jitter)
	if delay > backoffCap {
		delay = backoffCap
	}
	return delay
}
