package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// WebhookSink stellt Notifications per HTTP POST an einen externen
// Endpunkt zu (z.B. n8n oder einen anderen Workflow-Empfänger).
type WebhookSink struct {
	URL    string
	Logger *zap.Logger
}

// NewWebhookSink erstellt einen neuen Webhook-Sink.
func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	return &WebhookSink{URL: url, Logger: logger}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Deliver schickt das Event als JSON an die konfigurierte URL.
func (s *WebhookSink) Deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook request failed with status: %d", resp.StatusCode)
	}

	s.Logger.Debug("Event an Webhook zugestellt",
		zap.String("type", string(ev.Type)),
		zap.Uint64("seq", ev.Seq))
	return nil
}
