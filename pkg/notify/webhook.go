package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ngoyal88/lens/pkg/report"
)

// WebhookChannel POSTs the report as JSON to a caller-supplied URL.
type WebhookChannel struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookChannel creates a webhook channel. Extra headers are merged into
// every request, overriding defaults on collision.
func NewWebhookChannel(url string, headers map[string]string) *WebhookChannel {
	return &WebhookChannel{
		url:     url,
		headers: headers,
		client:  &http.Client{},
	}
}

func (c *WebhookChannel) Name() string {
	return "webhook"
}

type webhookPayload struct {
	Type   string        `json:"type"`
	Report webhookReport `json:"report"`
}

type webhookReport struct {
	Summary         report.Summary          `json:"summary"`
	UnusedEndpoints []report.UnusedEndpoint `json:"unusedEndpoints"`
	Recommendations []string                `json:"recommendations"`
}

// Send delivers the report summary. Any non-2xx response counts as a
// delivery failure for this channel.
func (c *WebhookChannel) Send(ctx context.Context, rep *report.UsageReport) error {
	payload := webhookPayload{
		Type: "endpoint_usage_report",
		Report: webhookReport{
			Summary:         rep.Summary,
			UnusedEndpoints: rep.TopUnusedEndpoints,
			Recommendations: rep.Recommendations,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
