package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrRateLimitTimeout is returned when an acquire could not be granted
// before the caller's deadline.
var ErrRateLimitTimeout = errors.New("rate limit acquire timed out")

type Config struct {
	PerMinute int
	PerHour   int
	MinDelay  time.Duration
	Cooldown  time.Duration
}

// RateGate is the process-wide limiter every browser-driving action
// goes through. It keeps a rolling log of grant timestamps and
// enforces both a per-minute and a per-hour budget; a separate
// min-delay throttle spaces consecutive actions. Rate limiting is
// global to the account, not per fetch, so one instance is shared by
// all sessions.
type RateGate struct {
	mu        sync.Mutex
	cfg       Config
	grants    []time.Time
	coolUntil time.Time

	throttle *rate.Limiter
	now      func() time.Time
	logger   *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *RateGate {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 30
	}
	if cfg.PerHour <= 0 {
		cfg.PerHour = 1000
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}

	g := &RateGate{
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
	if cfg.MinDelay > 0 {
		g.throttle = rate.NewLimiter(rate.Every(cfg.MinDelay), 1)
	}
	return g
}

// Acquire blocks until both windows have spare budget, then records
// the grant. It fails only when ctx expires first, with
// ErrRateLimitTimeout. Weights beyond the smallest window budget can
// never fit and are clamped to it.
func (g *RateGate) Acquire(ctx context.Context, weight int) error {
	if weight < 1 {
		weight = 1
	}
	maxWeight := g.cfg.PerMinute
	if g.cfg.PerHour < maxWeight {
		maxWeight = g.cfg.PerHour
	}
	if weight > maxWeight {
		g.logger.Warnf("Acquire weight %d exceeds budget, clamping to %d", weight, maxWeight)
		weight = maxWeight
	}

	for {
		g.mu.Lock()
		now := g.now()
		g.prune(now)
		wait := g.nextFree(now, weight)
		if wait <= 0 {
			for i := 0; i < weight; i++ {
				g.grants = append(g.grants, now)
			}
			g.mu.Unlock()
			return g.throttleWait(ctx)
		}
		g.mu.Unlock()

		g.logger.Debugf("Rate gate saturated, waiting %s", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrRateLimitTimeout, ctx.Err())
		case <-timer.C:
		}
	}
}

// Cooldown parks the gate after an upstream rate-limit response. A
// zero duration uses the configured default.
func (g *RateGate) Cooldown(d time.Duration) {
	if d <= 0 {
		d = g.cfg.Cooldown
	}
	g.mu.Lock()
	g.coolUntil = g.now().Add(d)
	g.mu.Unlock()
	g.logger.Warnf("Rate gate entering %s cooldown", d)
}

// Stats reports current window usage for monitoring.
func (g *RateGate) Stats() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	minuteCount := 0
	for _, t := range g.grants {
		if now.Sub(t) < time.Minute {
			minuteCount++
		}
	}

	cooldownLeft := time.Duration(0)
	if now.Before(g.coolUntil) {
		cooldownLeft = g.coolUntil.Sub(now)
	}

	return map[string]interface{}{
		"requests_last_minute": minuteCount,
		"requests_last_hour":   len(g.grants),
		"limit_per_minute":     g.cfg.PerMinute,
		"limit_per_hour":       g.cfg.PerHour,
		"cooldown_remaining":   cooldownLeft.String(),
	}
}

// prune drops grants older than the hour window. Must hold mu.
func (g *RateGate) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(g.grants) && !g.grants[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.grants = append(g.grants[:0], g.grants[i:]...)
	}
}

// nextFree returns how long until weight grants fit in every window,
// or <= 0 if they fit now. Must hold mu.
func (g *RateGate) nextFree(now time.Time, weight int) time.Duration {
	var wait time.Duration

	if now.Before(g.coolUntil) {
		wait = g.coolUntil.Sub(now)
	}

	minuteCutoff := now.Add(-time.Minute)
	minuteCount := 0
	var oldestInMinute time.Time
	for _, t := range g.grants {
		if t.After(minuteCutoff) {
			if minuteCount == 0 {
				oldestInMinute = t
			}
			minuteCount++
		}
	}
	if minuteCount+weight > g.cfg.PerMinute {
		if w := oldestInMinute.Add(time.Minute).Sub(now); w > wait {
			wait = w
		}
	}

	if len(g.grants)+weight > g.cfg.PerHour {
		if w := g.grants[0].Add(time.Hour).Sub(now); w > wait {
			wait = w
		}
	}

	return wait
}

func (g *RateGate) throttleWait(ctx context.Context) error {
	if g.throttle == nil {
		return nil
	}
	if err := g.throttle.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimitTimeout, err)
	}
	return nil
}
