// Package github posts review comments back to the pull request and pulls
// existing discussion down as context for the model.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
)

const (
	serviceName    = "github"
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second

	// Review bodies above this size are truncated before posting; the API
	// rejects oversized comments outright.
	maxReviewBodyLength = 65000
)

// Client talks to the GitHub REST API for a single repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
	logger     llmhttp.Logger
	retry      llmhttp.RetryConfig
}

// NewClient creates a GitHub API client scoped to owner/repo.
func NewClient(token, owner, repo string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		token:      token,
		owner:      owner,
		repo:       repo,
		retry:      llmhttp.DefaultRetryConfig(),
	}
}

// SetBaseURL overrides the API base URL, used for testing.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// SetLogger attaches a structured logger for request/response logging.
func (c *Client) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

type reviewRequest struct {
	Body  string `json:"body"`
	Event string `json:"event"`
}

// PostReview publishes the review body as a PR-level COMMENT review.
// Transient API failures retry with backoff.
func (c *Client) PostReview(ctx context.Context, prNumber int, body string) error {
	if len(body) > maxReviewBodyLength {
		body = body[:maxReviewBodyLength] + "\n\n> (review truncated to fit comment size limits)"
	}

	payload, err := json.Marshal(reviewRequest{Body: body, Event: "COMMENT"})
	if err != nil {
		return fmt.Errorf("marshaling review request: %w", err)
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", c.owner, c.repo, prNumber)
	return llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, path, payload)
		return err
	}, c.retry)
}

type issueComment struct {
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Body string `json:"body"`
}

type reviewComment struct {
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Path string `json:"path"`
	Body string `json:"body"`
}

type prReview struct {
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	State string `json:"state"`
	Body  string `json:"body"`
}

// FetchDiscussion collects the PR's issue comments, inline review comments
// and submitted reviews into one plain-text context blob for the prompt.
// Any individual fetch failure degrades to an empty section rather than
// failing the run.
func (c *Client) FetchDiscussion(ctx context.Context, prNumber int) string {
	var sections []string

	if text := c.fetchIssueComments(ctx, prNumber); text != "" {
		sections = append(sections, "## Conversation comments\n"+text)
	}
	if text := c.fetchReviewComments(ctx, prNumber); text != "" {
		sections = append(sections, "## Inline review comments\n"+text)
	}
	if text := c.fetchReviews(ctx, prNumber); text != "" {
		sections = append(sections, "## Submitted reviews\n"+text)
	}

	return strings.Join(sections, "\n\n")
}

func (c *Client) fetchIssueComments(ctx context.Context, prNumber int) string {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", c.owner, c.repo, prNumber), nil)
	if err != nil {
		c.logWarning(ctx, "fetching issue comments failed", err)
		return ""
	}
	var comments []issueComment
	if err := json.Unmarshal(body, &comments); err != nil {
		return ""
	}
	var lines []string
	for _, comment := range comments {
		if comment.Body == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", comment.User.Login, comment.Body))
	}
	return strings.Join(lines, "\n")
}

func (c *Client) fetchReviewComments(ctx context.Context, prNumber int) string {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", c.owner, c.repo, prNumber), nil)
	if err != nil {
		c.logWarning(ctx, "fetching review comments failed", err)
		return ""
	}
	var comments []reviewComment
	if err := json.Unmarshal(body, &comments); err != nil {
		return ""
	}
	var lines []string
	for _, comment := range comments {
		if comment.Body == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s): %s", comment.User.Login, comment.Path, comment.Body))
	}
	return strings.Join(lines, "\n")
}

func (c *Client) fetchReviews(ctx context.Context, prNumber int) string {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", c.owner, c.repo, prNumber), nil)
	if err != nil {
		c.logWarning(ctx, "fetching reviews failed", err)
		return ""
	}
	var reviews []prReview
	if err := json.Unmarshal(body, &reviews); err != nil {
		return ""
	}
	var lines []string
	for _, review := range reviews {
		if review.Body == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s [%s]: %s", review.User.Login, review.State, review.Body))
	}
	return strings.Join(lines, "\n")
}

// do performs a single API request and maps failures onto the shared error
// taxonomy so RetryWithBackoff can tell transient from permanent.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, llmhttp.NewTimeoutError(serviceName, llmhttp.RedactURLSecrets(err.Error()))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		message := http.StatusText(resp.StatusCode)
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return nil, llmhttp.FromStatusCode(serviceName, resp.StatusCode, message)
	}

	return body, nil
}

func (c *Client) logWarning(ctx context.Context, message string, err error) {
	if c.logger != nil {
		c.logger.LogWarning(ctx, message, map[string]any{
			"error": llmhttp.RedactURLSecrets(err.Error()),
		})
	}
}
