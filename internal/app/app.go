// Package app wires the review pipeline end to end: diff acquisition,
// redaction, chunking, the model run, and delivery of the result.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bkyoung/diffcritic/internal/cli"
	"github.com/bkyoung/diffcritic/internal/config"
	"github.com/bkyoung/diffcritic/internal/diff"
	"github.com/bkyoung/diffcritic/internal/domain"
	"github.com/bkyoung/diffcritic/internal/format"
	gitengine "github.com/bkyoung/diffcritic/internal/git"
	githubadapter "github.com/bkyoung/diffcritic/internal/github"
	"github.com/bkyoung/diffcritic/internal/llm"
	"github.com/bkyoung/diffcritic/internal/llm/gemini"
	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
	"github.com/bkyoung/diffcritic/internal/llm/static"
	"github.com/bkyoung/diffcritic/internal/quota"
	"github.com/bkyoung/diffcritic/internal/redact"
	"github.com/bkyoung/diffcritic/internal/review"
)

// App runs review requests against the loaded configuration.
type App struct {
	cfg    config.Config
	logger llmhttp.Logger
	out    io.Writer
	in     io.Reader

	// colorOutput reports whether the output destination supports ANSI
	// colors. Injected so tests can pin it.
	colorOutput func() bool
}

// Option customizes an App.
type Option func(*App)

// WithColorDetector overrides terminal detection for console output.
func WithColorDetector(detect func() bool) Option {
	return func(a *App) {
		a.colorOutput = detect
	}
}

// New constructs an App.
func New(cfg config.Config, logger llmhttp.Logger, out io.Writer, in io.Reader, opts ...Option) *App {
	a := &App{
		cfg:         cfg,
		logger:      logger,
		out:         out,
		in:          in,
		colorOutput: review.IsOutputTerminal,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Review executes one review run. Configuration errors are fatal and abort
// before any file or network access.
func (a *App) Review(ctx context.Context, req cli.ReviewRequest) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	chunkSize := a.cfg.Review.ChunkSize
	if req.ChunkSize > 0 {
		chunkSize = req.ChunkSize
	}

	thresholdName := a.cfg.Review.Threshold
	if req.Threshold != "" {
		thresholdName = req.Threshold
	}
	threshold, ok := domain.ParseSeverity(thresholdName)
	if !ok {
		return fmt.Errorf("%w: unknown review threshold %q", domain.ErrConfiguration, thresholdName)
	}

	diffText, err := a.loadDiff(ctx, req)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diffText) == "" {
		a.logInfo(ctx, "empty diff, nothing to review", nil)
		_, _ = fmt.Fprintln(a.out, "Nothing to review: the diff is empty.")
		return a.writeActionOutputs(domain.ReviewResult{}, "", false)
	}

	if a.cfg.Redaction.Enabled {
		redacted, err := redact.NewEngine().Redact(diffText)
		if err != nil {
			return fmt.Errorf("redacting diff: %w", err)
		}
		diffText = redacted
	}

	chunks, err := diff.Chunk(diffText, chunkSize)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.Oversized {
			a.logWarning(ctx, "single-file chunk exceeds the configured size, sending whole", map[string]any{
				"chunk": chunk.Index,
				"files": strings.Join(chunk.Files, ","),
				"size":  chunk.Size(),
				"limit": chunkSize,
			})
		}
		if gitengine.IsBinaryPatch(chunk.Text) {
			a.logInfo(ctx, "chunk contains binary file changes the model cannot inspect", map[string]any{
				"chunk": chunk.Index,
				"files": strings.Join(chunk.Files, ","),
			})
		}
	}

	var github *githubadapter.Client
	if !req.Local {
		github, err = a.githubClient()
		if err != nil {
			return err
		}
	}

	commentsContext := ""
	if github != nil {
		commentsContext = github.FetchDiscussion(ctx, req.PRNumber)
	}

	instructions := a.cfg.Review.Instructions
	if req.Instructions != "" {
		instructions = req.Instructions
	}

	provider, err := a.buildProvider(req, instructions)
	if err != nil {
		return err
	}

	runCfg, err := a.runConfig(threshold, commentsContext)
	if err != nil {
		return err
	}

	tracker := quota.NewTracker(quota.Limits{
		RequestsPerMinute: a.cfg.Quota.RequestsPerMinute,
		TokensPerMinute:   a.cfg.Quota.TokensPerMinute,
		RequestsPerDay:    a.cfg.Quota.RequestsPerDay,
	}, a.cfg.Quota.FailFast)

	orchestrator := review.NewOrchestrator(provider, tracker, a.logger, runCfg)
	result, runErr := orchestrator.Run(ctx, chunks)
	a.logInfo(ctx, "model usage for this run", map[string]any{"quota": tracker.Snapshot()})

	if runErr != nil {
		if errors.Is(runErr, quota.ErrExhausted) {
			// Partial findings are still worth showing, but nothing gets
			// posted on an aborted run.
			_, _ = fmt.Fprintln(a.out, "Review aborted: daily request quota exhausted. Partial findings below were not posted.")
			if err := a.writeConsole(result); err != nil {
				return err
			}
			return fmt.Errorf("review aborted: %w", runErr)
		}
		return runErr
	}

	if req.Local {
		return a.writeConsole(result)
	}

	body := format.Comment(result)
	if err := github.PostReview(ctx, req.PRNumber, body); err != nil {
		return fmt.Errorf("posting review to PR #%d: %w", req.PRNumber, err)
	}
	a.logInfo(ctx, "review posted", map[string]any{
		"pr":         req.PRNumber,
		"findings":   len(result.Findings),
		"suppressed": result.Suppressed,
		"truncated":  result.Truncated,
	})

	return a.writeActionOutputs(result, body, true)
}

// loadDiff resolves the diff text from a file, stdin, or the repository.
func (a *App) loadDiff(ctx context.Context, req cli.ReviewRequest) (string, error) {
	if req.DiffFile != "" {
		if req.DiffFile == "-" {
			data, err := io.ReadAll(a.in)
			if err != nil {
				return "", fmt.Errorf("reading diff from stdin: %w", err)
			}
			return string(data), nil
		}
		data, err := os.ReadFile(req.DiffFile)
		if err != nil {
			return "", fmt.Errorf("reading diff file: %w", err)
		}
		return string(data), nil
	}

	repoDir := req.RepoDir
	if repoDir == "" {
		repoDir = a.cfg.Git.RepositoryDir
	}
	baseRef := req.BaseRef
	if baseRef == "" {
		baseRef = a.cfg.Git.BaseRef
	}
	targetRef := req.TargetRef
	if targetRef == "" {
		targetRef = a.cfg.Git.TargetRef
	}

	engine := gitengine.NewEngine(repoDir)
	if branch, err := engine.CurrentBranch(); err == nil {
		a.logInfo(ctx, "diffing repository", map[string]any{
			"branch": branch,
			"base":   baseRef,
			"target": targetRef,
		})
	}
	return engine.Diff(ctx, baseRef, targetRef, req.IncludeUncommitted)
}

func (a *App) buildProvider(req cli.ReviewRequest, instructions string) (llm.Provider, error) {
	switch a.cfg.Provider.Name {
	case "static":
		return static.NewProvider(a.cfg.Provider.StaticResponse), nil
	case "gemini":
		if a.cfg.Provider.APIKey == "" {
			return nil, fmt.Errorf("%w: provider.apiKey is required for the gemini provider", domain.ErrConfiguration)
		}
		model := a.cfg.Provider.Model
		if req.Model != "" {
			model = req.Model
		}
		temperature := a.cfg.Provider.Temperature
		if req.Temperature != nil {
			temperature = *req.Temperature
		}
		topP := a.cfg.Provider.TopP
		if req.TopP != nil {
			topP = *req.TopP
		}
		timeout, err := a.cfg.Provider.ParsedTimeout()
		if err != nil {
			return nil, err
		}

		client := gemini.NewClient(a.cfg.Provider.APIKey, model, timeout, gemini.Options{
			SystemInstruction: review.SystemPrompt(instructions),
			Temperature:       temperature,
			TopP:              topP,
			MaxOutputTokens:   a.cfg.Provider.MaxOutputTokens,
		})
		if a.logger != nil {
			client.SetLogger(a.logger)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, a.cfg.Provider.Name)
	}
}

func (a *App) runConfig(threshold domain.Severity, commentsContext string) (review.RunConfig, error) {
	backoff, err := a.cfg.HTTP.RetryConfig()
	if err != nil {
		return review.RunConfig{}, err
	}
	interval, err := a.cfg.Review.ParsedMinRequestInterval()
	if err != nil {
		return review.RunConfig{}, err
	}
	return review.RunConfig{
		Threshold:          threshold,
		MaxAttempts:        a.cfg.Review.MaxAttempts,
		Backoff:            backoff,
		MinRequestInterval: interval,
		Concurrency:        a.cfg.Review.Concurrency,
		CommentsContext:    commentsContext,
	}, nil
}

func (a *App) githubClient() (*githubadapter.Client, error) {
	token := a.cfg.GitHub.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" || a.cfg.GitHub.Owner == "" || a.cfg.GitHub.Repo == "" {
		return nil, fmt.Errorf("%w: github token, owner and repo are required to post reviews (or run with --local)", domain.ErrConfiguration)
	}

	timeout, err := parseTimeout(a.cfg.HTTP.Timeout)
	if err != nil {
		return nil, err
	}
	client := githubadapter.NewClient(token, a.cfg.GitHub.Owner, a.cfg.GitHub.Repo, timeout)
	if a.logger != nil {
		client.SetLogger(a.logger)
	}
	return client, nil
}

func (a *App) writeConsole(result domain.ReviewResult) error {
	return format.NewConsoleWriter(a.out, a.colorOutput()).Write(result)
}

// writeActionOutputs publishes run outputs for GitHub Actions workflows when
// GITHUB_OUTPUT is set.
func (a *App) writeActionOutputs(result domain.ReviewResult, body string, posted bool) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	outputs := []struct {
		key   string
		value string
	}{
		{"review_posted", fmt.Sprintf("%t", posted)},
		{"findings_count", fmt.Sprintf("%d", len(result.Findings))},
		{"review_body", body},
	}
	for _, output := range outputs {
		if err := githubadapter.WriteActionOutput(path, output.key, output.value); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) logInfo(ctx context.Context, message string, fields map[string]any) {
	if a.logger != nil {
		a.logger.LogInfo(ctx, message, fields)
	}
}

func (a *App) logWarning(ctx context.Context, message string, fields map[string]any) {
	if a.logger != nil {
		a.logger.LogWarning(ctx, message, fields)
	}
}

func parseTimeout(value string) (timeout time.Duration, err error) {
	if value == "" {
		return 30 * time.Second, nil
	}
	timeout, err = time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid http.timeout %q: %v", domain.ErrConfiguration, value, err)
	}
	return timeout, nil
}
