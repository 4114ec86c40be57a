package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"research-notify/internal/domain/entity"
)

// SlackConfig contains configuration for the operator alert webhook.
type SlackConfig struct {
	// Enabled indicates whether failure alerts are posted
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackAlerter posts a message to Slack when a notification exhausts its retries.
// Operators use it to follow up on deliveries the engine gave up on.
type SlackAlerter struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter

	// retryDelay is the base delay between webhook attempts
	retryDelay time.Duration
}

// NewSlackAlerter creates an alerter limited to 1 request/second with burst of 1
// (Slack Webhook limit: 1 message per second).
func NewSlackAlerter(config SlackConfig) *SlackAlerter {
	return &SlackAlerter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
		retryDelay:  5 * time.Second,
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// buildAlertPayload renders the failed notification as a section block with the
// last delivery error, followed by a context block with ids and attempt count.
func buildAlertPayload(n *entity.Notification) SlackWebhookPayload {
	fallback := truncate(fmt.Sprintf("Notification failed: %s", n.Title), maxFallbackLength, slackTruncationSuffix)

	section := fmt.Sprintf("*%s notification to %s failed*\n*%s*\n```%s```",
		n.Type, n.RecipientEmail, n.Title, n.Error)
	section = truncate(section, maxSectionTextLength, slackTruncationSuffix)

	meta := fmt.Sprintf("id %s • %s • %d retries • scheduled %s",
		n.ID, n.RecipientCategory, n.RetryCount, n.ScheduledFor.UTC().Format(time.RFC3339))

	return SlackWebhookPayload{
		Text: fallback,
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackTextObject{Type: "mrkdwn", Text: section}},
			{Type: "context", Elements: []SlackTextObject{{Type: "mrkdwn", Text: meta}}},
		},
	}
}

// extractRetryAfter reads the Retry-After header in seconds (default 5s).
func extractRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

// sendWebhookRequest posts one payload.
//
// Error types:
//   - 429: Rate limit error (retryable, contains retry_after duration)
//   - 4xx (non-429): Client error (non-retryable)
//   - 5xx: Server error (retryable)
//   - Network error: Connection/timeout error (retryable)
func (s *SlackAlerter) sendWebhookRequest(ctx context.Context, payload SlackWebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Message: "Slack rate limit exceeded", RetryAfter: extractRetryAfter(resp)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Slack API client error: %s", string(body))}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Slack API server error: %s", string(body))}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// AlertFailed posts an alert for a notification that reached FAILED.
// It makes at most two attempts; a 429 waits for Retry-After, 5xx and network
// errors wait the base delay, 4xx fails immediately.
func (s *SlackAlerter) AlertFailed(ctx context.Context, n *entity.Notification) error {
	if !s.config.Enabled {
		return nil
	}

	const maxAttempts = 2
	payload := buildAlertPayload(n)

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.sendWebhookRequest(ctx, payload)
		if err == nil {
			slog.Info("failure alert posted",
				slog.String("notification_id", n.ID),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		var (
			delay time.Duration
			rl    *RateLimitError
		)
		switch {
		case errors.As(err, &rl):
			delay = rl.RetryAfter
		case !isRetryableError(err):
			return err
		default:
			delay = s.retryDelay * time.Duration(attempt)
		}

		if attempt == maxAttempts {
			break
		}
		slog.Warn("failure alert not posted, retrying",
			slog.String("notification_id", n.ID),
			slog.Any("error", err),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during alert backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("slack alert failed after %d attempts: %w", maxAttempts, lastErr)
}
