// Package resend implements a mail capability that sends emails via the
// Resend API.
package resend

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
)

// EmailsAPI is the subset of the Resend emails service used by Provider.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Provider sends emails via the Resend API.
type Provider struct {
	from   string
	emails EmailsAPI
}

// New creates a Provider for the given API key. from overrides the message
// sender when set.
func New(apiKey, from string) *Provider {
	return NewWithClient(from, resend.NewClient(apiKey).Emails)
}

// NewWithClient creates a Provider over a custom emails service, used for testing.
func NewWithClient(from string, emails EmailsAPI) *Provider {
	return &Provider{
		from:   from,
		emails: emails,
	}
}

// BeginSend submits the message to Resend. Resend accepts synchronously, so
// the returned poller is already complete.
func (p *Provider) BeginSend(ctx context.Context, msg *email.Message) (provider.Poller, error) {
	params, err := buildRequest(p.from, msg)
	if err != nil {
		return nil, err
	}

	sent, err := p.emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Debug("resend_sent", "message_id", sent.Id)
	return provider.Completed(&email.SendResult{
		ID:     sent.Id,
		Status: email.StatusSucceeded,
	}), nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "resend"
}

func buildRequest(from string, msg *email.Message) (*resend.SendEmailRequest, error) {
	if from == "" {
		from = msg.SenderAddress
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      formatAddresses(msg.Recipients.To),
		Cc:      formatAddresses(msg.Recipients.Cc),
		Bcc:     formatAddresses(msg.Recipients.Bcc),
		Subject: msg.Content.Subject,
		Text:    msg.Content.PlainText,
		Html:    msg.Content.HTML,
		Headers: msg.Headers,
	}
	// Resend takes a single reply-to address.
	if len(msg.ReplyTo) > 0 {
		params.ReplyTo = formatAddress(msg.ReplyTo[0])
	}

	for _, att := range msg.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.ContentInBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content for attachment %q: %w", att.Name, err)
		}
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Content:  content,
			Filename: att.Name,
		})
	}

	return params, nil
}

func formatAddress(a email.Address) string {
	if a.DisplayName == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.DisplayName, a.Address)
}

func formatAddresses(addrs []email.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, formatAddress(a))
	}
	return out
}
