// FILE: src/internal/server/ratelimit.go
package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"

	"guardpost/src/internal/config"
)

// RateLimiter provides per-client request limiting for the JSON API.
type RateLimiter struct {
	clients         sync.Map // map[string]*clientLimiter
	requestsPerSec  int
	burst           int
	cleanupInterval time.Duration
	done            chan struct{}
	logger          *log.Logger
}

type clientLimiter struct {
	limiter *rate.Limiter

	// Unix nanoseconds; written on every request while the cleanup
	// goroutine reads it concurrently.
	lastSeen atomic.Int64
}

// NewRateLimiter creates a per-IP token bucket limiter with background
// cleanup of idle clients.
func NewRateLimiter(cfg config.RateLimit, logger *log.Logger) *RateLimiter {
	rl := &RateLimiter{
		requestsPerSec:  cfg.RequestsPerSec,
		burst:           cfg.Burst,
		cleanupInterval: time.Duration(cfg.CleanupIntervalSec) * time.Second,
		done:            make(chan struct{}),
		logger:          logger,
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether the client identified by ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.getLimiter(ip).Allow()
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	if val, ok := rl.clients.Load(ip); ok {
		client := val.(*clientLimiter)
		client.lastSeen.Store(time.Now().UnixNano())
		return client.limiter
	}

	client := &clientLimiter{
		limiter: rate.NewLimiter(rate.Limit(rl.requestsPerSec), rl.burst),
	}
	client.lastSeen.Store(time.Now().UnixNano())
	rl.clients.Store(ip, client)
	return client.limiter
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.removeOldClients()
		}
	}
}

func (rl *RateLimiter) removeOldClients() {
	threshold := time.Now().Add(-rl.cleanupInterval * 2).UnixNano()

	rl.clients.Range(func(key, value any) bool {
		client := value.(*clientLimiter)
		if client.lastSeen.Load() < threshold {
			rl.clients.Delete(key)
		}
		return true
	})
}

// Stop shuts down the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}
