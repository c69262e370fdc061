package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendReservationConfirmation(ctx context.Context, msg domain.ConfirmationEmail) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	rendered, err := renderConfirmation(msg)
	if err != nil {
		return err
	}
	return m.sendEmail(ctx, msg.To, msg.PublisherName, rendered)
}

func (m *MailerSendClient) sendEmail(ctx context.Context, toEmail, toName string, email *renderedEmail) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(email.Subject)

	if strings.TrimSpace(email.Text) != "" {
		msg.SetText(email.Text)
	}
	if strings.TrimSpace(email.HTML) != "" {
		msg.SetHTML(email.HTML)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
