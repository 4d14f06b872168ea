package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/loopmeter/loopmeter/internal/logger"
)

// WebhookConfig holds configuration for webhook delivery.
type WebhookConfig struct {
	// URL is the webhook endpoint.
	URL string

	// MaxRetries is the maximum number of retry attempts (default 3).
	MaxRetries int

	// InitialBackoff is the first retry delay (default 1s); each retry
	// doubles it up to MaxBackoff (default 30s).
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Timeout is the per-request HTTP timeout (default 10s).
	Timeout time.Duration
}

// DefaultWebhookConfig returns sensible defaults.
func DefaultWebhookConfig(url string) WebhookConfig {
	return WebhookConfig{
		URL:            url,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Timeout:        10 * time.Second,
	}
}

// WebhookSink POSTs events as JSON, retrying with exponential backoff on
// transport errors and 5xx responses.
type WebhookSink struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhookSink creates a webhook sink. Zero-valued config fields take
// their defaults.
func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	def := DefaultWebhookConfig(cfg.URL)
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &WebhookSink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Deliver posts the event, retrying transient failures.
func (w *WebhookSink) Deliver(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(w.cfg.InitialBackoff) * math.Pow(2, float64(attempt-1)))
			if backoff > w.cfg.MaxBackoff {
				backoff = w.cfg.MaxBackoff
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			logger.Debug("webhook retry", "attempt", attempt, "metric", e.Metric)
		}

		var retryable bool
		retryable, lastErr = w.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if !retryable {
			return fmt.Errorf("webhook delivery failed: %w", lastErr)
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", w.cfg.MaxRetries+1, lastErr)
}

// post returns whether a failure is worth retrying along with the error.
func (w *WebhookSink) post(ctx context.Context, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return true, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return true, fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// Client errors will not succeed on retry.
		return false, fmt.Errorf("webhook rejected payload with %d", resp.StatusCode)
	}
	return false, nil
}
