package health

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/metrics"
)

// Status is a point-in-time view of one strategy's health record.
type Status struct {
	Strategy            string        `json:"strategy"`
	Available           bool          `json:"available"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastChecked         time.Time     `json:"last_checked"`
	RetryAt             time.Time     `json:"retry_at,omitempty"`
	AvgLatency          time.Duration `json:"avg_latency_ms"`
}

type record struct {
	available           bool
	consecutiveFailures int
	lastChecked         time.Time
	lastFailure         time.Time
	retryAt             time.Time

	// Exponentially weighted latency of successful attempts.
	latency        time.Duration
	latencySamples int
}

// Tracker keeps per-strategy availability in process memory. State is
// shared across concurrent conversions and guarded by a single mutex;
// records are small and updates are rare relative to extraction work.
type Tracker struct {
	mu      sync.Mutex
	cfg     config.HealthConfig
	now     func() time.Time
	records map[string]*record
}

// New builds a Tracker using the wall clock.
func New(cfg config.HealthConfig) *Tracker {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock builds a Tracker with an injected clock.
func NewWithClock(cfg config.HealthConfig, now func() time.Time) *Tracker {
	return &Tracker{cfg: cfg, now: now, records: make(map[string]*record)}
}

func (t *Tracker) get(strategy string) *record {
	r, ok := t.records[strategy]
	if !ok {
		r = &record{available: true}
		t.records[strategy] = r
	}
	return r
}

// IsAvailable reports whether a strategy should be attempted. An
// unavailable strategy whose cooldown has expired flips back to
// available optimistically; its failure count is kept so the next
// failure backs off longer.
func (t *Tracker) IsAvailable(strategy string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.get(strategy)
	if r.available {
		return true
	}
	if !t.now().Before(r.retryAt) {
		r.available = true
		metrics.StrategyUp(strategy)
		log.Info().Str("strategy", strategy).Msg("cooldown expired, strategy available again")
		return true
	}
	return false
}

// RecordOutcome updates a strategy record after an attempt.
func (t *Tracker) RecordOutcome(strategy string, outcome document.Outcome, dur time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.get(strategy)
	now := t.now()
	r.lastChecked = now

	switch outcome {
	case document.OutcomeSuccess:
		if !r.available {
			metrics.StrategyUp(strategy)
		}
		r.available = true
		r.consecutiveFailures = 0
		r.retryAt = time.Time{}
		if r.latencySamples == 0 {
			r.latency = dur
		} else {
			// EWMA, alpha 0.3
			r.latency = time.Duration(float64(r.latency)*0.7 + float64(dur)*0.3)
		}
		r.latencySamples++

	case document.OutcomeSoftFailure:
		// A stale streak outside the window starts over.
		if !r.lastFailure.IsZero() && now.Sub(r.lastFailure) > t.cfg.SoftFailureWindow {
			r.consecutiveFailures = 0
		}
		r.consecutiveFailures++
		r.lastFailure = now
		if r.consecutiveFailures >= t.cfg.SoftFailureThreshold {
			t.markDown(strategy, r, now)
		}

	case document.OutcomeHardFailure:
		r.consecutiveFailures++
		r.lastFailure = now
		t.markDown(strategy, r, now)
	}
}

func (t *Tracker) markDown(strategy string, r *record, now time.Time) {
	backoff := t.cfg.BaseBackoff
	for i := t.cfg.SoftFailureThreshold; i < r.consecutiveFailures; i++ {
		backoff = time.Duration(float64(backoff) * t.cfg.BackoffFactor)
		if backoff >= t.cfg.MaxBackoff {
			backoff = t.cfg.MaxBackoff
			break
		}
	}
	if backoff > t.cfg.MaxBackoff {
		backoff = t.cfg.MaxBackoff
	}

	wasAvailable := r.available
	r.available = false
	r.retryAt = now.Add(backoff)

	if wasAvailable {
		metrics.StrategyDown(strategy)
	}
	log.Warn().
		Str("strategy", strategy).
		Int("failures", r.consecutiveFailures).
		Dur("cooldown", backoff).
		Time("retry_at", r.retryAt).
		Msg("strategy marked unavailable")
}

// AvgLatency returns the smoothed latency of successful attempts and
// whether any sample exists yet.
func (t *Tracker) AvgLatency(strategy string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[strategy]
	if !ok || r.latencySamples == 0 {
		return 0, false
	}
	return r.latency, true
}

// Snapshot returns the current state of all tracked strategies.
func (t *Tracker) Snapshot() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Status, 0, len(t.records))
	for name, r := range t.records {
		out = append(out, Status{
			Strategy:            name,
			Available:           r.available || !t.now().Before(r.retryAt),
			ConsecutiveFailures: r.consecutiveFailures,
			LastChecked:         r.lastChecked,
			RetryAt:             r.retryAt,
			AvgLatency:          r.latency,
		})
	}
	return out
}
