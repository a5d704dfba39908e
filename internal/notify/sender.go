package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers a message to an external messaging service.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// NewSender returns a WebhookSender for url, or a LogSender when url is
// blank.
func NewSender(url string, log zerolog.Logger) Sender {
	if strings.TrimSpace(url) == "" {
		return LogSender{log: log}
	}
	return &WebhookSender{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// WebhookSender posts messages as JSON.
type WebhookSender struct {
	url  string
	http *http.Client
}

// Send posts m and treats any non-2xx status as a failure.
func (w *WebhookSender) Send(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// LogSender records messages in the log instead of delivering them.
type LogSender struct {
	log zerolog.Logger
}

func (l LogSender) Send(_ context.Context, m Message) error {
	l.log.Info().
		Str("kind", string(m.Kind)).
		Strs("recipients", m.Recipients).
		Str("subject", m.Subject).
		Msg("notification (no webhook configured)")
	return nil
}
