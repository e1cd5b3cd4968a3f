package middleware

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SimulationConfig controls artificial latency and transient failures
type SimulationConfig struct {
	MinDelay  time.Duration
	MaxDelay  time.Duration
	ErrorRate float64
}

// Enabled reports whether the simulation changes anything
func (c SimulationConfig) Enabled() bool {
	return c.MaxDelay > 0 || c.ErrorRate > 0
}

// Simulate delays each request by a random duration in [MinDelay, MaxDelay]
// and fails a share of them with 503 before they reach the handler.
// A request cancelled while waiting is dropped.
func Simulate(cfg SimulationConfig) mux.MiddlewareFunc {
	return simulate(cfg, rand.Float64, func(n int64) int64 { return rand.Int64N(n) })
}

func simulate(cfg SimulationConfig, roll func() float64, pick func(n int64) int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			delay := cfg.MinDelay
			if spread := int64(cfg.MaxDelay - cfg.MinDelay); spread > 0 {
				delay += time.Duration(pick(spread + 1))
			}
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-r.Context().Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}

			if cfg.ErrorRate > 0 && roll() < cfg.ErrorRate {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "temporary failure, please try again",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
