// Package stdout implements a mail capability that prints canonical messages
// instead of sending them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
)

// Provider prints messages to a writer in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// BeginSend prints the message and reports it as succeeded.
func (p *Provider) BeginSend(_ context.Context, msg *email.Message) (provider.Poller, error) {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s\n", msg.SenderAddress)
	writeAddressLine(&b, "Reply-To", msg.ReplyTo)
	fmt.Fprintf(&b, "To: %s\n", formatAddresses(msg.Recipients.To))
	writeAddressLine(&b, "Cc", msg.Recipients.Cc)
	writeAddressLine(&b, "Bcc", msg.Recipients.Bcc)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Content.Subject)

	if len(msg.Headers) > 0 {
		keys := make([]string, 0, len(msg.Headers))
		for k := range msg.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, msg.Headers[k])
		}
	}
	if msg.DisableUserEngagementTracking != nil && *msg.DisableUserEngagementTracking {
		b.WriteString("Tracking: disabled\n")
	}

	b.WriteString("Body:\n")
	body := msg.Content.PlainText
	if body == "" {
		body = msg.Content.HTML
	}
	b.WriteString(body + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Name, formatSize(decodedSize(att.ContentInBase64))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString("========================================\n")

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}

	return provider.Completed(&email.SendResult{
		ID:     uuid.NewString(),
		Status: email.StatusSucceeded,
	}), nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

func writeAddressLine(b *strings.Builder, label string, addrs []email.Address) {
	if len(addrs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, formatAddresses(addrs))
}

// formatAddresses renders addresses as "Name <addr>" or "addr", comma-separated.
func formatAddresses(addrs []email.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.DisplayName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.DisplayName, a.Address))
			continue
		}
		parts = append(parts, a.Address)
	}
	return strings.Join(parts, ", ")
}

// decodedSize returns the byte length of base64 content without decoding it.
func decodedSize(b64 string) int {
	n := len(b64) / 4 * 3
	switch {
	case strings.HasSuffix(b64, "=="):
		n -= 2
	case strings.HasSuffix(b64, "="):
		n--
	}
	return n
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
