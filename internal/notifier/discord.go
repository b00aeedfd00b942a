package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/models"
	"github.com/pauljones0/shift-code-watcher/internal/util"
)

const (
	colorGoldenKey = 16766720 // #FFD700

	// Discord accepts at most 10 embeds per webhook message.
	maxEmbedsPerMessage = 10
	maxRetries          = 3
)

// DiscordClient posts new codes to a Discord webhook.
type DiscordClient struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
	backoffBase time.Duration
}

func NewDiscord(webhookURL string) *DiscordClient {
	return &DiscordClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Webhooks allow roughly 5 requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		backoffBase: time.Second,
	}
}

// Internal structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

// Send posts one embed per code, batched into as few messages as Discord allows.
// The recipient is ignored; the webhook decides the channel.
func (c *DiscordClient) Send(ctx context.Context, _ string, codes []models.CodeRecord) error {
	if c.webhookURL == "" || len(codes) == 0 {
		return nil
	}

	for start := 0; start < len(codes); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(codes))

		payload := discordWebhookPayload{}
		if start == 0 {
			payload.Content = fmt.Sprintf("Found %d new SHiFT code(s)! Redeem at <%s>", len(codes), redeemURL)
		}
		for _, code := range codes[start:end] {
			payload.Embeds = append(payload.Embeds, formatCodeToEmbed(code))
		}

		if err := c.post(ctx, payload); err != nil {
			return &models.NotificationError{Transport: config.TransportDiscord, Err: err}
		}
	}

	slog.Info("Discord notification sent", "codes", len(codes))
	return nil
}

func formatCodeToEmbed(code models.CodeRecord) discordEmbed {
	title := code.Reward
	if title == "" {
		title = "SHiFT Code"
	}

	added, expiry := code.Added, code.Expiry
	if added == "" {
		added = "unknown"
	}
	if expiry == "" {
		expiry = "unknown"
	}

	return discordEmbed{
		Title:       title,
		URL:         redeemURL,
		Description: fmt.Sprintf("`%s`", code.Code),
		Color:       colorGoldenKey,
		Fields: []discordEmbedField{
			{Name: "Added", Value: added, Inline: true},
			{Name: "Expires", Value: expiry, Inline: true},
		},
	}
}

func (c *DiscordClient) post(ctx context.Context, payload discordWebhookPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(payloadBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))

		backoff := c.retryBackoff(resp, attempt)
		if backoff == 0 || attempt == maxRetries {
			break
		}
		slog.Warn("Discord webhook request failed, retrying", "status", resp.StatusCode, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

// retryBackoff returns how long to wait before retrying resp, or zero if the
// response must not be retried. 429 honors Retry-After; 5xx backs off exponentially.
func (c *DiscordClient) retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs := util.SafeAtoi(resp.Header.Get("Retry-After")); secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return c.backoffBase << attempt
	case resp.StatusCode >= 500:
		return c.backoffBase << attempt
	}
	return 0
}
