package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

// MailerSender delivers notifications as plain-text email via MailerSend.
type MailerSender struct {
	client    *mailersend.Mailersend
	fromName  string
	fromEmail string
}

func NewMailerSender(apiKey, fromName, fromEmail string) *MailerSender {
	return &MailerSender{
		client:    mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *MailerSender) Send(ctx context.Context, n Notification) error {
	const op = "notify.MailerSender.Send"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	message := m.client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: m.fromName, Email: m.fromEmail})
	message.SetRecipients([]mailersend.Recipient{{Email: n.Recipient}})
	message.SetSubject(n.Subject)
	message.SetText(n.Body)

	if _, err := m.client.Email.Send(ctx, message); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
