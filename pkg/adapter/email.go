package adapter

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/notifier/pkg/mailer"
	"github.com/dmitrymomot/notifier/pkg/notification"
)

// Default content used when the payload does not carry the optional keys.
const (
	defaultEmailSubject = "Notification from Platform"
	defaultEmailBody    = "No content"
)

// Email delivers events through the email transport.
type Email struct {
	sender mailer.EmailSender
}

// NewEmail creates the email channel adapter.
func NewEmail(sender mailer.EmailSender) *Email {
	return &Email{sender: sender}
}

// Channel implements Adapter.
func (a *Email) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Deliver implements Adapter. The message body comes from the payload's
// "message" key and the subject from the optional "subject" key. A missing
// target address is a delivery failure, not a validation one: the request
// was accepted, this particular attempt cannot reach a mailbox.
func (a *Email) Deliver(ctx context.Context, event notification.Event) error {
	if event.TargetAddress == "" {
		return fmt.Errorf("email delivery requires a target address (request %s)", event.RequestID)
	}

	subject := defaultEmailSubject
	if s, ok := event.Payload["subject"].(string); ok && s != "" {
		subject = s
	}
	body := defaultEmailBody
	if m, ok := event.Payload["message"].(string); ok && m != "" {
		body = m
	}

	return a.sender.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:   event.TargetAddress,
		Subject:  subject,
		BodyText: body,
		Tag:      event.RequestID.String(),
	})
}
