package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// PushoverSink delivers through the Pushover message API.
type PushoverSink struct {
	baseSink
	userKey  string
	apiToken string
	endpoint string
	client   *http.Client
}

func NewPushoverSink(template, userKey, apiToken string) *PushoverSink {
	return &PushoverSink{
		baseSink: baseSink{name: "pushover", mode: ModeBlocking, template: template},
		userKey:  userKey,
		apiToken: apiToken,
		endpoint: pushoverEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *PushoverSink) Deliver(ctx context.Context, message string) error {
	form := url.Values{
		"token":   {s.apiToken},
		"user":    {s.userKey},
		"message": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushover returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
