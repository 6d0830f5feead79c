package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"venue-pulse/internal/forecast/application"
	forecast "venue-pulse/internal/forecast/domain"
	"venue-pulse/internal/forecast/money"
)

// WebhookNotifier posts wage alerts as text messages to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyWageAlert sends an alert to the webhook.
func (n *WebhookNotifier) NotifyWageAlert(ctx context.Context, alert application.WageAlert) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatWageAlert(alert)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: http %d", resp.StatusCode)
	}
	return nil
}

func formatWageAlert(alert application.WageAlert) string {
	var b strings.Builder
	b.WriteString("[Wage Alert]\n")
	if alert.VenueName != "" {
		fmt.Fprintf(&b, "Venue: %s\n", alert.VenueName)
	}
	if alert.LocationID != "" {
		fmt.Fprintf(&b, "Location: %s\n", alert.LocationID)
	}
	if alert.BusinessDate != "" {
		fmt.Fprintf(&b, "Business date: %s\n", alert.BusinessDate)
	}
	switch alert.Status {
	case forecast.PONRUpcoming:
		fmt.Fprintf(&b, "Weekly wage %% reaches %.1f%% in %d min (%s)\n", alert.ThresholdPercent, alert.MinutesFromNow, alert.PointTimeISO)
		b.WriteString("Suggested: send staff home before the point of no return\n")
	case forecast.PONRPassed:
		fmt.Fprintf(&b, "Weekly wage %% passed %.1f%% %d min ago (%s)\n", alert.ThresholdPercent, -alert.MinutesFromNow, alert.PointTimeISO)
		b.WriteString("Suggested: cut remaining shifts to limit the overrun\n")
	default:
		fmt.Fprintf(&b, "Status: %s\n", alert.Status)
	}
	if alert.WeekWagePercent != nil {
		fmt.Fprintf(&b, "Projected week wage now: %s\n", money.FormatPercent(alert.WeekWagePercent))
	}
	if alert.ProjectedTotalCents > 0 {
		fmt.Fprintf(&b, "Projected tonight: %s\n", money.FormatCents(alert.ProjectedTotalCents))
	}
	return strings.TrimSpace(b.String())
}
