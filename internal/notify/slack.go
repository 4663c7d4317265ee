package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackSink posts rendered messages to an incoming webhook.
type SlackSink struct {
	baseSink
	webhookURL string
	channel    string
	client     *http.Client
}

func NewSlackSink(template, webhookURL, channel string) *SlackSink {
	return &SlackSink{
		baseSink:   baseSink{name: "slack", mode: ModeBlocking, template: template},
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackSink) Deliver(ctx context.Context, message string) error {
	payload := map[string]string{"text": message}
	if s.channel != "" {
		payload["channel"] = s.channel
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
