package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const ntfyBaseURL = "https://ntfy.sh"

// NtfySink publishes rendered messages to an ntfy.sh topic.
type NtfySink struct {
	baseSink
	topicURL string
	title    string
	client   *http.Client
}

func NewNtfySink(template, topic, title string) *NtfySink {
	if title == "" {
		title = "New appointments"
	}
	return &NtfySink{
		baseSink: baseSink{name: "ntfy", mode: ModeBlocking, template: template},
		topicURL: fmt.Sprintf("%s/%s", ntfyBaseURL, topic),
		title:    title,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *NtfySink) Deliver(ctx context.Context, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", s.title)
	req.Header.Set("Tags", "hospital,pill,syringe")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned %d", resp.StatusCode)
	}
	return nil
}
