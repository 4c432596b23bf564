// Package downstream implements the flaky receiver role: rate limiting
// plus weighted random failure injection.
package downstream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Priya8975/webhook-relay/internal/ratelimit"
)

const failureRateDefault = 0.20

type Handler struct {
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
	failureRate  float64
	forceOutcome string
	now          func() time.Time
	sleep        func(time.Duration)
}

func NewHandler(limiter *ratelimit.Limiter, logger *slog.Logger, failureRate float64, forceOutcome string) *Handler {
	if failureRate < 0 {
		failureRate = failureRateDefault
	}
	return &Handler{
		limiter:      limiter,
		logger:       logger,
		failureRate:  failureRate,
		forceOutcome: forceOutcome,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Receive implements POST /downstream/receive: rate limit then a
// weighted categorical outcome draw among {500, 429, timeout, success}
// with weights {F*0.5, F*0.25, F*0.25, 1-F}.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if !h.limiter.Allow(r.Context(), ip) {
		h.logger.Warn("rate limited", "ip", ip)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"detail": fmt.Sprintf("Rate limit exceeded for IP %s", ip)})
		return
	}

	outcome := h.forceOutcome
	if outcome == "" {
		outcome = h.drawOutcome()
	}

	switch outcome {
	case "500":
		h.logger.Info("inject 500", "ip", ip)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "simulated internal error"})

	case "429":
		h.logger.Info("inject 429", "ip", ip)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "simulated external rate limit"})

	case "timeout":
		delay := 2.0 + rand.Float64()*3.0
		h.logger.Info("simulate timeout", "ip", ip, "delay", delay)
		h.sleep(time.Duration(delay * float64(time.Second)))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "received_with_delay",
			"ip":        ip,
			"delay_sec": delay,
			"timestamp": h.now().Unix(),
		})

	default:
		h.logger.Info("received successfully", "ip", ip)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "received",
			"ip":        ip,
			"timestamp": h.now().Unix(),
		})
	}
}

func (h *Handler) drawOutcome() string {
	f := h.failureRate
	weights := []float64{f * 0.5, f * 0.25, f * 0.25, 1 - f}
	outcomes := []string{"500", "429", "timeout", "success"}

	total := 0.0
	for _, w := range weights {
		total += w
	}

	draw := rand.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw < cumulative {
			return outcomes[i]
		}
	}
	return "success"
}

// clientIP prefers the leftmost X-Forwarded-For entry, else the
// transport peer address, else "unknown".
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
