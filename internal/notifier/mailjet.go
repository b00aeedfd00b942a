package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/util"
)

const mailjetSendURL = "https://api.mailjet.com/v3.1/send"

// MailjetSender sends through the Mailjet Send API v3.1.
type MailjetSender struct {
	apiKey     string
	apiSecret  string
	fromEmail  string
	fromName   string
	endpoint   string
	client     *http.Client
	maxRetries int
}

func NewMailjetSender(cfg config.MailjetConfig) *MailjetSender {
	return &MailjetSender{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		endpoint:   mailjetSendURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxRetries: 2,
	}
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetAddress   `json:"From"`
	To       []mailjetAddress `json:"To"`
	ReplyTo  *mailjetAddress  `json:"ReplyTo,omitempty"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart"`
	HTMLPart string           `json:"HTMLPart"`
}

type mailjetPayload struct {
	Messages []mailjetMessage `json:"Messages"`
}

type mailjetResponse struct {
	Messages []struct {
		Status string `json:"Status"`
		Errors []struct {
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Errors"`
	} `json:"Messages"`
}

func (m *MailjetSender) Send(ctx context.Context, msg Message) error {
	payload := mailjetPayload{Messages: []mailjetMessage{{
		From:     mailjetAddress{Email: m.fromEmail, Name: m.fromName},
		To:       []mailjetAddress{{Email: msg.To}},
		ReplyTo:  &mailjetAddress{Email: m.fromEmail},
		Subject:  msg.Subject,
		TextPart: msg.TextBody,
		HTMLPart: msg.HTMLBody,
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mailjet payload: %w", err)
	}

	return util.RetryWithBackoff(ctx, m.maxRetries, func(_ int) error {
		return m.post(ctx, body)
	})
}

// post makes one delivery attempt. Only 429 and 5xx responses are retried;
// anything else is returned as permanent.
func (m *MailjetSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return util.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.apiKey, m.apiSecret)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("mailjet status: %s, body: %s", resp.Status, string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return util.Permanent(fmt.Errorf("mailjet status: %s, body: %s", resp.Status, string(respBody)))
	}

	var result mailjetResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return util.Permanent(fmt.Errorf("failed to decode mailjet response: %w", err))
	}
	for _, r := range result.Messages {
		if r.Status != "success" {
			reason := r.Status
			if len(r.Errors) > 0 {
				reason = r.Errors[0].ErrorMessage
			}
			return util.Permanent(fmt.Errorf("mailjet rejected message: %s", reason))
		}
	}
	return nil
}
