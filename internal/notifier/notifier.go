package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// Notifier delivers a batch of new codes.
type Notifier interface {
	Send(ctx context.Context, recipient string, codes []models.CodeRecord) error
}

// Sender is implemented by every e-mail provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the transport selected by cfg.NotifyTransport.
func New(ctx context.Context, cfg *config.Config) (Notifier, error) {
	switch cfg.NotifyTransport {
	case config.TransportLog:
		return NewLogNotifier(), nil
	case config.TransportMailjet:
		return NewEmailNotifier(config.TransportMailjet, NewMailjetSender(cfg.Mailjet), cfg.CodesURL), nil
	case config.TransportGmail:
		sender, err := NewGmailSender(ctx, cfg.Gmail)
		if err != nil {
			return nil, err
		}
		return NewEmailNotifier(config.TransportGmail, sender, cfg.CodesURL), nil
	case config.TransportSMTP:
		return NewEmailNotifier(config.TransportSMTP, NewSMTPSender(cfg.SMTP), cfg.CodesURL), nil
	case config.TransportDiscord:
		return NewDiscord(cfg.DiscordWebhookURL), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.NotifyTransport)
	}
}

// EmailNotifier renders the code digest and hands it to an e-mail Sender.
type EmailNotifier struct {
	transport string
	sender    Sender
	sourceURL string
}

func NewEmailNotifier(transport string, sender Sender, sourceURL string) *EmailNotifier {
	return &EmailNotifier{
		transport: transport,
		sender:    sender,
		sourceURL: sourceURL,
	}
}

func (n *EmailNotifier) Send(ctx context.Context, recipient string, codes []models.CodeRecord) error {
	if len(codes) == 0 {
		return nil
	}

	msg, err := RenderEmail(recipient, n.sourceURL, codes)
	if err != nil {
		return &models.NotificationError{Transport: n.transport, Err: err}
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return &models.NotificationError{Transport: n.transport, Err: err}
	}

	slog.Info("Notification email sent", "transport", n.transport, "recipient", recipient, "codes", len(codes))
	return nil
}
