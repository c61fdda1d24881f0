// Package quota tracks request and token consumption against per-minute and
// per-day limits for a rate-limited API.
package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrExhausted indicates the daily quota is confirmed exhausted with
// fail-fast enabled. Daily quota does not replenish within a single run, so
// callers should abort instead of retrying.
var ErrExhausted = errors.New("api quota exhausted for the day")

// Decision is the verdict returned before an API call.
type Decision int

const (
	// Proceed means the call fits within every configured limit.
	Proceed Decision = iota
	// Wait means a minute-level limit is exhausted; retry after Verdict.Wait.
	Wait
	// FailFast means the daily limit is exhausted and will not reset within
	// this run.
	FailFast
)

// String returns a human-readable decision name.
func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Wait:
		return "wait"
	case FailFast:
		return "fail-fast"
	default:
		return "unknown"
	}
}

// Verdict carries the decision plus the wait duration when Decision == Wait.
type Verdict struct {
	Decision Decision
	Wait     time.Duration
	// Dimension names the limit that forced a non-Proceed verdict
	// ("rpm", "tpm" or "rpd").
	Dimension string
}

// Limits configures the tracked dimensions. A zero value disables tracking
// for that dimension.
type Limits struct {
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int
}

// Tracker maintains fixed-window counters for one invocation. All methods
// are safe for concurrent use; a single mutex serializes every read and
// mutation so two concurrent callers can never both consume the last unit of
// quota.
type Tracker struct {
	mu sync.Mutex

	limits   Limits
	failFast bool
	now      func() time.Time

	minuteStart    time.Time
	requestsMinute int
	tokensMinute   int

	dayStart    time.Time
	requestsDay int
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock injects a clock, used by tests to simulate window boundaries.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker constructs a Tracker for the given limits. When failFast is
// enabled, daily exhaustion produces a FailFast verdict instead of a wait.
func NewTracker(limits Limits, failFast bool, opts ...Option) *Tracker {
	t := &Tracker{
		limits:   limits,
		failFast: failFast,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	start := t.now()
	t.minuteStart = start
	t.dayStart = start
	return t
}

// BeforeCall classifies whether a new call with the given estimated token
// cost is safe. It never mutates the counters; AfterCall records actual
// consumption once the request has been made.
func (t *Tracker) BeforeCall(estimatedTokens int) Verdict {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.rollWindows(now)

	if t.limits.RequestsPerDay > 0 && t.requestsDay+1 > t.limits.RequestsPerDay {
		if t.failFast {
			return Verdict{Decision: FailFast, Dimension: "rpd"}
		}
		return Verdict{Decision: Wait, Wait: t.dayStart.Add(24 * time.Hour).Sub(now), Dimension: "rpd"}
	}

	if t.limits.RequestsPerMinute > 0 && t.requestsMinute+1 > t.limits.RequestsPerMinute {
		return Verdict{Decision: Wait, Wait: t.minuteRemaining(now), Dimension: "rpm"}
	}

	if t.limits.TokensPerMinute > 0 && t.tokensMinute+estimatedTokens > t.limits.TokensPerMinute {
		return Verdict{Decision: Wait, Wait: t.minuteRemaining(now), Dimension: "tpm"}
	}

	return Verdict{Decision: Proceed}
}

// AfterCall records one completed request and its token consumption. Pass
// the actual token count from the API's usage metadata when available, or
// the estimate otherwise.
func (t *Tracker) AfterCall(tokensConsumed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.rollWindows(now)

	t.requestsMinute++
	t.requestsDay++
	if tokensConsumed > 0 {
		t.tokensMinute += tokensConsumed
	}
}

// Snapshot reports current window consumption, for logging.
func (t *Tracker) Snapshot() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollWindows(t.now())
	return fmt.Sprintf("requests_minute=%d tokens_minute=%d requests_day=%d",
		t.requestsMinute, t.tokensMinute, t.requestsDay)
}

// rollWindows resets any counter whose fixed window has elapsed. Caller must
// hold the mutex.
func (t *Tracker) rollWindows(now time.Time) {
	if now.Sub(t.minuteStart) >= time.Minute {
		t.minuteStart = now
		t.requestsMinute = 0
		t.tokensMinute = 0
	}
	if now.Sub(t.dayStart) >= 24*time.Hour {
		t.dayStart = now
		t.requestsDay = 0
	}
}

func (t *Tracker) minuteRemaining(now time.Time) time.Duration {
	remaining := t.minuteStart.Add(time.Minute).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
