package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// WebhookConfig is the per-product configuration a webhook notifier is
// initialized with.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Secret  string            `json:"secret,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WebhookPayload is the JSON body POSTed to the configured URL.
type WebhookPayload struct {
	Event     string                   `json:"event"`
	Timestamp time.Time                `json:"timestamp"`
	Product   string                   `json:"product_id"`
	Source    string                   `json:"source_id,omitempty"`
	Change    string                   `json:"change_type"`
	OldValue  json.RawMessage          `json:"old_value,omitempty"`
	NewValue  json.RawMessage          `json:"new_value"`
	Comparison *models.PriceComparison `json:"comparison,omitempty"`
	Actions   models.ActionURLs        `json:"actions"`
}

// WebhookNotifier delivers an HMAC-signed POST, retried with backoff.
type WebhookNotifier struct {
	client  *http.Client
	cfg     WebhookConfig
	retries int
}

func NewWebhookNotifier() *WebhookNotifier {
	return &WebhookNotifier{
		client:  &http.Client{Timeout: 30 * time.Second},
		retries: 3,
	}
}

func (w *WebhookNotifier) Name() string               { return "webhook" }
func (w *WebhookNotifier) Kind() models.NotifierKind  { return models.NotifierKindWebhook }
func (w *WebhookNotifier) Description() string        { return "Delivers an HMAC-signed HTTP POST to a configured URL." }

func (w *WebhookNotifier) Initialize(configJSON json.RawMessage) error {
	if err := w.ValidateConfig(configJSON); err != nil {
		return err
	}
	return json.Unmarshal(configJSON, &w.cfg)
}

func (w *WebhookNotifier) ValidateConfig(configJSON json.RawMessage) error {
	var cfg WebhookConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return fmt.Errorf("notify: invalid webhook config: %w", err)
	}
	if cfg.URL == "" {
		return fmt.Errorf("notify: webhook config requires a url")
	}
	return nil
}

func (w *WebhookNotifier) ConfigSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["url"],"properties":{"url":{"type":"string"},"secret":{"type":"string"},"headers":{"type":"object"}}}`)
}

func (w *WebhookNotifier) TestConnection(ctx context.Context, configJSON json.RawMessage) error {
	var cfg WebhookConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.URL, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, event models.NotificationEvent) models.NotifyResult {
	payload := WebhookPayload{
		Event:      "value_changed",
		Timestamp:  time.Now().UTC(),
		Product:    event.ProductID,
		Source:     event.SourceID,
		Change:     event.ChangeType,
		OldValue:   event.OldValue,
		NewValue:   event.NewValue,
		Comparison: event.Comparison,
		Actions:    event.Actions,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.NotifyResult{Success: false, Error: err.Error()}
	}

	var lastErr error
	for attempt := 1; attempt <= w.retries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return models.NotifyResult{Success: false, Error: ctx.Err().Error()}
			}
		}
		status, err := w.deliver(ctx, body)
		if err == nil && status >= 200 && status < 300 {
			return models.NotifyResult{Success: true}
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("webhook: unexpected status %d", status)
		}
	}
	return models.NotifyResult{Success: false, Error: lastErr.Error()}
}

func (w *WebhookNotifier) deliver(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pagewatch-webhook/1.0")
	if w.cfg.Secret != "" {
		sig := w.sign(body)
		req.Header.Set("X-Pagewatch-Signature-256", "sha256="+sig)
	}
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, nil
}

func (w *WebhookNotifier) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(w.cfg.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *WebhookNotifier) Shutdown() error { return nil }
