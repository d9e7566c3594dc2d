// Package slacknotify implements sessionmgr.SlackNotifier with a single
// incoming webhook POST. Delivery reliability (retries, queuing) is the
// external collaborator's problem, not this package's: a failed post is
// reported to the caller, who logs it and moves on.
package slacknotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook posts handoff summaries to a single Slack incoming-webhook URL.
type Webhook struct {
	url    string
	client *http.Client
}

// New constructs a Webhook notifier. url is the full incoming-webhook
// endpoint; an empty url is rejected by the caller before this is built.
func New(url string) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

type payload struct {
	Text string `json:"text"`
}

// NotifyHandoff posts a one-line summary of a session handoff.
func (w *Webhook) NotifyHandoff(ctx context.Context, tenantID, projectID, summary string) error {
	body, err := json.Marshal(payload{
		Text: fmt.Sprintf("[%s/%s] session handoff: %s", tenantID, projectID, summary),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
