// Package mailer is the send entry point for hosts. It normalizes a raw send
// request into a canonical message and hands it to a mail capability.
package mailer

import (
	"context"
	"log/slog"

	"github.com/shineum/acs-mail-lite/internal/address"
	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
	"github.com/shineum/acs-mail-lite/internal/provider/acs"
)

// Settings holds host-level defaults.
type Settings struct {
	// DefaultFrom is used as sender and reply-to when a request omits them.
	DefaultFrom string `yaml:"default_from"`
}

// Mailer sends canonical messages through a single mail capability. It
// holds no per-call state and is safe for concurrent use if the capability is.
type Mailer struct {
	settings   Settings
	capability provider.Capability
}

// New creates a Mailer over an already constructed capability.
func New(capability provider.Capability, settings Settings) *Mailer {
	return &Mailer{
		settings:   settings,
		capability: capability,
	}
}

// Init creates a Mailer backed by Azure Communication Services.
func Init(opts acs.Options, settings Settings) (*Mailer, error) {
	client, err := acs.New(opts)
	if err != nil {
		return nil, err
	}
	return New(client, settings), nil
}

// Capability returns the capability messages are sent through.
func (m *Mailer) Capability() provider.Capability {
	return m.capability
}

// Send builds the canonical message for opts, submits it and waits for the
// capability to report completion. Validation errors are returned before
// the capability is contacted; capability errors are returned as is.
func (m *Mailer) Send(ctx context.Context, opts *email.SendOptions) (*email.SendResult, error) {
	msg, err := Build(opts, m.settings)
	if err != nil {
		return nil, err
	}

	slog.Debug("sending message",
		"provider", m.capability.Name(),
		"sender", msg.SenderAddress,
		"to", len(msg.Recipients.To),
		"cc", len(msg.Recipients.Cc),
		"bcc", len(msg.Recipients.Bcc),
	)

	poller, err := m.capability.BeginSend(ctx, msg)
	if err != nil {
		return nil, err
	}

	return poller.PollUntilDone(ctx)
}

// Build assembles the canonical message for opts. Recipients get no default;
// sender and reply-to fall back to settings.DefaultFrom.
func Build(opts *email.SendOptions, settings Settings) (*email.Message, error) {
	if opts == nil {
		opts = &email.SendOptions{}
	}

	from, err := address.Normalize(opts.From, settings.DefaultFrom)
	if err != nil {
		return nil, err
	}
	replyTo, err := address.Normalize(opts.ReplyTo, settings.DefaultFrom)
	if err != nil {
		return nil, err
	}
	to, err := address.Normalize(opts.To, "")
	if err != nil {
		return nil, err
	}
	cc, err := address.Normalize(opts.Cc, "")
	if err != nil {
		return nil, err
	}
	bcc, err := address.Normalize(opts.Bcc, "")
	if err != nil {
		return nil, err
	}

	msg := &email.Message{
		ReplyTo: replyTo,
		Content: email.Content{
			Subject:   opts.Subject,
			PlainText: opts.Text,
			HTML:      opts.HTML,
		},
		Recipients: email.Recipients{
			To:  to,
			Cc:  cc,
			Bcc: bcc,
		},
		Attachments:                   opts.Attachments,
		Headers:                       opts.Headers,
		DisableUserEngagementTracking: opts.DisableUserEngagementTracking,
	}
	if len(from) > 0 {
		msg.SenderAddress = from[0].Address
	}

	return msg, nil
}
