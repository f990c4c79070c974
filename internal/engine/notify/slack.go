package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hooklens/internal/platform/models"
)

// SlackNotifier posts to a Slack incoming-webhook URL. The payload is
// signed with the webhook secret so relays can authenticate it.
type SlackNotifier struct {
	url    string
	appURL string
	client *http.Client
}

func NewSlackNotifier(url, appURL string) *SlackNotifier {
	return &SlackNotifier{url: url, appURL: appURL, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *SlackNotifier) Channel() string { return "slack" }

func (s *SlackNotifier) Enabled(n models.Notifications) bool {
	return n.Slack && s.url != ""
}

func (s *SlackNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(map[string]string{"text": details(ev, s.appURL)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(ev.Webhook.Secret, payload))
	req.Header.Set("X-Hooklens-Webhook", ev.Webhook.ID)
	req.Header.Set("X-Hooklens-Delivery", ev.Request.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack returned HTTP %d", resp.StatusCode)
	}
	return nil
}
