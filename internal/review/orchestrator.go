// Package review runs the chunked model review pipeline: prompting, quota
// gating, retries, response parsing and aggregation.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bkyoung/diffcritic/internal/domain"
	"github.com/bkyoung/diffcritic/internal/llm"
	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
	"github.com/bkyoung/diffcritic/internal/quota"
)

// RunConfig controls one review run.
type RunConfig struct {
	// Threshold is the minimum severity surfaced in the result.
	Threshold domain.Severity

	// MaxAttempts caps attempts per chunk, first try included.
	MaxAttempts int

	// Backoff shapes the delay between retries of transient failures.
	Backoff llmhttp.RetryConfig

	// MinRequestInterval enforces spacing between model requests so CI runs
	// do not burst into the per-minute limits.
	MinRequestInterval time.Duration

	// Concurrency bounds the worker pool. Values below 1 mean sequential.
	Concurrency int

	// CommentsContext is an optional blob of existing PR discussion included
	// in every chunk prompt.
	CommentsContext string
}

// Orchestrator coordinates chunk reviews against a single provider, gated by
// the shared quota tracker.
type Orchestrator struct {
	provider llm.Provider
	tracker  *quota.Tracker
	logger   llmhttp.Logger
	cfg      RunConfig

	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	estimate func(text string) int

	mu            sync.Mutex
	nextRequestAt time.Time
}

// Option customizes an Orchestrator, mainly for tests.
type Option func(*Orchestrator)

// WithSleeper injects the sleep function used for backoff and quota waits.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithClock injects the clock used for request pacing.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithTokenEstimator overrides the token estimator used for quota checks.
func WithTokenEstimator(estimate func(text string) int) Option {
	return func(o *Orchestrator) {
		o.estimate = estimate
	}
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(provider llm.Provider, tracker *quota.Tracker, logger llmhttp.Logger, cfg RunConfig, opts ...Option) *Orchestrator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff.MaxRetries == 0 && cfg.Backoff.InitialBackoff == 0 {
		cfg.Backoff = llmhttp.DefaultRetryConfig()
	}
	o := &Orchestrator{
		provider: provider,
		tracker:  tracker,
		logger:   logger,
		cfg:      cfg,
		sleep:    sleepContext,
		now:      time.Now,
		estimate: llm.EstimateTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run reviews every chunk and aggregates the findings. A chunk that fails
// all its attempts is skipped and sets Truncated; quota exhaustion aborts
// outstanding work and returns quota.ErrExhausted together with whatever
// partial result exists, so callers can report it without posting.
func (o *Orchestrator) Run(ctx context.Context, chunks []domain.DiffChunk) (domain.ReviewResult, error) {
	result := domain.ReviewResult{ChunksAttempted: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	type outcome struct {
		raw    string
		ok     bool
		failed bool
	}
	outcomes := make([]outcome, len(chunks))

	concurrency := o.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			prompt := ChunkPrompt(chunk.Text, chunk.Index, len(chunks), o.cfg.CommentsContext)
			raw, err := o.callModel(gctx, prompt)
			if err != nil {
				if errors.Is(err, quota.ErrExhausted) || gctx.Err() != nil {
					outcomes[i] = outcome{failed: true}
					return err
				}
				o.logWarning(gctx, "chunk review failed, continuing without it", map[string]any{
					"chunk":    chunk.Index,
					"of":       len(chunks),
					"files":    len(chunk.Files),
					"error":    llmhttp.RedactURLSecrets(err.Error()),
					"attempts": o.cfg.MaxAttempts,
				})
				outcomes[i] = outcome{failed: true}
				return nil
			}
			outcomes[i] = outcome{raw: raw, ok: true}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, quota.ErrExhausted) {
		return result, runErr
	}

	perChunk := make([][]domain.Finding, 0, len(chunks))
	var rawReviews []string
	for i, out := range outcomes {
		switch {
		case out.ok:
			result.ChunksSucceeded++
			rawReviews = append(rawReviews, out.raw)
			parsed := Parse(out.raw)
			if parsed.Malformed {
				// Parse failure is not a chunk failure: the call succeeded,
				// the chunk just produced zero findings.
				o.logWarning(ctx, "model response unparseable, no findings for chunk", map[string]any{
					"chunk":      chunks[i].Index,
					"diagnostic": parsed.Diagnostic,
					"response":   llmhttp.TruncateForLogging(out.raw),
				})
				continue
			}
			findings := parsed.Findings
			for j := range findings {
				findings[j].ChunkIndex = chunks[i].Index
			}
			perChunk = append(perChunk, findings)
		case out.failed:
			result.Truncated = true
		}
	}

	aggregated := Aggregate(perChunk, o.cfg.Threshold)
	result.Findings = aggregated.Findings
	result.Suppressed = aggregated.Suppressed

	if runErr != nil {
		// Quota exhausted: skip the summary call and surface the partial
		// result with the distinct error.
		result.Truncated = true
		return result, runErr
	}

	// A truncated run gets no synthesized summary: the findings plus the
	// truncation warning stand alone.
	if !result.Truncated && len(rawReviews) > 1 {
		result.Summary = o.summarize(ctx, rawReviews)
	}

	return result, nil
}

// summarize condenses per-chunk reviews into one overview. Failure here is
// not fatal; the structured findings stand on their own.
func (o *Orchestrator) summarize(ctx context.Context, rawReviews []string) string {
	summary, err := o.callModel(ctx, SummaryPrompt(rawReviews))
	if err != nil {
		o.logWarning(ctx, "summary request failed", map[string]any{
			"error": llmhttp.RedactURLSecrets(err.Error()),
		})
		return ""
	}
	return summary
}

// callModel performs one gated, retried model call. Every attempt consults
// the quota tracker first: a wait verdict sleeps out the window, a fail-fast
// verdict aborts with quota.ErrExhausted. Transient API failures retry with
// exponential backoff up to MaxAttempts.
func (o *Orchestrator) callModel(ctx context.Context, prompt string) (string, error) {
	estimated := o.estimate(prompt)

	for attempt := 0; ; {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		verdict := o.tracker.BeforeCall(estimated)
		switch verdict.Decision {
		case quota.FailFast:
			return "", fmt.Errorf("%s limit reached: %w", verdict.Dimension, quota.ErrExhausted)
		case quota.Wait:
			o.logInfo(ctx, "quota window exhausted, waiting", map[string]any{
				"dimension": verdict.Dimension,
				"wait":      verdict.Wait.Round(time.Millisecond).String(),
			})
			if err := o.sleep(ctx, verdict.Wait); err != nil {
				return "", err
			}
			continue
		}

		if err := o.pace(ctx); err != nil {
			return "", err
		}

		resp, err := o.provider.Generate(ctx, prompt)
		if err == nil {
			consumed := resp.TotalTokens()
			if consumed == 0 {
				consumed = estimated
			}
			o.tracker.AfterCall(consumed)
			return resp.Text, nil
		}

		if !llmhttp.ShouldRetry(err) {
			return "", err
		}
		if attempt >= o.cfg.MaxAttempts-1 {
			return "", err
		}

		backoff := llmhttp.ExponentialBackoff(attempt, o.cfg.Backoff)
		o.logWarning(ctx, "transient model failure, backing off", map[string]any{
			"attempt": attempt + 1,
			"of":      o.cfg.MaxAttempts,
			"backoff": backoff.Round(time.Millisecond).String(),
			"error":   llmhttp.RedactURLSecrets(err.Error()),
		})
		if err := o.sleep(ctx, backoff); err != nil {
			return "", err
		}
		attempt++
	}
}

// pace reserves the next request slot so concurrent workers keep the
// configured minimum spacing between requests.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.cfg.MinRequestInterval <= 0 {
		return nil
	}

	o.mu.Lock()
	now := o.now()
	wait := o.nextRequestAt.Sub(now)
	if wait < 0 {
		wait = 0
	}
	o.nextRequestAt = now.Add(wait + o.cfg.MinRequestInterval)
	o.mu.Unlock()

	if wait > 0 {
		return o.sleep(ctx, wait)
	}
	return nil
}

func (o *Orchestrator) logInfo(ctx context.Context, message string, fields map[string]any) {
	if o.logger != nil {
		o.logger.LogInfo(ctx, message, fields)
	}
}

func (o *Orchestrator) logWarning(ctx context.Context, message string, fields map[string]any) {
	if o.logger != nil {
		o.logger.LogWarning(ctx, message, fields)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
