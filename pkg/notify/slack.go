package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ngoyal88/lens/pkg/report"
)

// SlackChannel posts a formatted attachment message to a chat webhook.
type SlackChannel struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackChannel creates a chat-webhook channel. channel may be empty to
// use the webhook's default destination.
func NewSlackChannel(webhookURL, channel string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{},
	}
}

func (c *SlackChannel) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Send posts the report as one attachment with a severity color.
func (c *SlackChannel) Send(ctx context.Context, rep *report.UsageReport) error {
	msg := slackMessage{
		Channel: c.channel,
		Attachments: []slackAttachment{{
			Color:  severityColor(rep.Summary),
			Title:  "Endpoint Usage Report",
			Fields: buildFields(rep),
		}},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// severityColor maps report health to the chat color indicator.
func severityColor(s report.Summary) string {
	switch {
	case s.UnusedPercentage > 30 || s.SlowCount > 5 || s.HighErrorCount > 3:
		return "danger"
	case s.UnusedPercentage > 15 || s.SlowCount > 2 || s.HighErrorCount > 1:
		return "warning"
	default:
		return "good"
	}
}

func buildFields(rep *report.UsageReport) []slackField {
	fields := []slackField{
		{
			Title: "Usage",
			Value: fmt.Sprintf("%d endpoints, %d unused (%d%%)",
				rep.Summary.TotalEndpoints, rep.Summary.UnusedCount, rep.Summary.UnusedPercentage),
			Short: true,
		},
		{
			Title: "Performance",
			Value: fmt.Sprintf("%d slow, %d high error rate",
				rep.Summary.SlowCount, rep.Summary.HighErrorCount),
			Short: true,
		},
	}

	if len(rep.TopUnusedEndpoints) > 0 {
		var lines []string
		for i, u := range rep.TopUnusedEndpoints {
			if i == 3 {
				break
			}
			lines = append(lines, fmt.Sprintf("%s %s - %.0f days", u.Method, u.Path, u.DaysSinceLastUse))
		}
		fields = append(fields, slackField{
			Title: "Top Unused Endpoints",
			Value: strings.Join(lines, "\n"),
		})
	}

	if len(rep.SlowEndpoints) > 0 {
		var lines []string
		for i, st := range rep.SlowEndpoints {
			if i == 3 {
				break
			}
			lines = append(lines, fmt.Sprintf("%s %s - avg %.0fms (p95 %.0fms)",
				st.Method, st.Path, st.AverageResponseTime, st.Performance.P95))
		}
		fields = append(fields, slackField{
			Title: "Top Performance Issues",
			Value: strings.Join(lines, "\n"),
		})
	}

	return fields
}
