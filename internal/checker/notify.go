package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hardened-user/zabbix-check-status/internal/models"
)

// Notifier posts the run summary to a webhook when the run completes
type Notifier struct {
	WebhookURL string // if empty, no notifications
	Client     *http.Client
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	RunID          string             `json:"run_id"`
	Status         models.RunStatus   `json:"status"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	Jobs           []models.JobResult `json:"jobs"`
	Broken         []models.Finding   `json:"broken"`
}

// SendCompletion posts the summary. It is a no-op without a webhook URL.
// Errors should be treated as warnings by the caller.
func (n *Notifier) SendCompletion(ctx context.Context, s *models.RunSummary) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	payload := completionPayload{
		RunID:  s.ID,
		Status: s.Status,
		Jobs:   s.Jobs,
		Broken: []models.Finding{},
	}
	if s.CompletedAt != nil {
		payload.ElapsedSeconds = s.CompletedAt.Sub(s.StartedAt).Seconds()
	}
	for _, f := range s.Findings {
		if f.Verdict.Fails() {
			payload.Broken = append(payload.Broken, f)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
