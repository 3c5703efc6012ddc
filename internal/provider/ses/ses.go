// Package ses implements a mail capability that sends emails via AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
)

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Sender overrides the message sender address when set.
	Sender string
}

// SESProvider sends emails via the AWS SES v2 API.
// @MX:ANCHOR: [AUTO] External system integration point for AWS SES
// @MX:REASON: All email delivery flows through this provider when SES is configured
type SESProvider struct {
	sender string
	client SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.Sender, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI) *SESProvider {
	return &SESProvider{
		sender: sender,
		client: client,
	}
}

// BeginSend delivers the message via AWS SES v2. SES accepts synchronously,
// so the returned poller is already complete.
// Messages with attachments are sent as raw MIME; all others use the SES
// simple email format.
func (s *SESProvider) BeginSend(ctx context.Context, msg *email.Message) (provider.Poller, error) {
	sender := s.sender
	if sender == "" {
		sender = msg.SenderAddress
	}

	var input *sesv2.SendEmailInput
	if len(msg.Attachments) > 0 {
		raw, err := buildRawMessage(sender, msg)
		if err != nil {
			return nil, fmt.Errorf("failed to build raw message: %w", err)
		}
		input = &sesv2.SendEmailInput{
			Content: &types.EmailContent{
				Raw: &types.RawMessage{
					Data: raw,
				},
			},
		}
	} else {
		input = buildSimpleInput(sender, msg)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("SES API request failed: %w", err)
	}

	slog.Debug("SES message sent", "message_id", aws.ToString(out.MessageId))

	return provider.Completed(&email.SendResult{
		ID:     aws.ToString(out.MessageId),
		Status: email.StatusSucceeded,
	}), nil
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

// buildSimpleInput creates a SES SendEmailInput for emails without attachments.
func buildSimpleInput(sender string, msg *email.Message) *sesv2.SendEmailInput {
	body := &types.Body{}

	if msg.Content.HTML != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.Content.HTML),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.Content.PlainText != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.Content.PlainText),
			Charset: aws.String("UTF-8"),
		}
	}

	simple := &types.Message{
		Subject: &types.Content{
			Data:    aws.String(msg.Content.Subject),
			Charset: aws.String("UTF-8"),
		},
		Body: body,
	}
	for _, name := range sortedKeys(msg.Headers) {
		simple.Headers = append(simple.Headers, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(msg.Headers[name]),
		})
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(sender),
		Destination: &types.Destination{
			ToAddresses:  formatAddresses(msg.Recipients.To),
			CcAddresses:  formatAddresses(msg.Recipients.Cc),
			BccAddresses: formatAddresses(msg.Recipients.Bcc),
		},
		ReplyToAddresses: formatAddresses(msg.ReplyTo),
		Content: &types.EmailContent{
			Simple: simple,
		},
	}
}

// buildRawMessage constructs a raw MIME message for emails with attachments.
// Bcc recipients are carried in the header block; SES strips them before delivery.
func buildRawMessage(sender string, msg *email.Message) ([]byte, error) {
	if err := checkHeaderValue("From", sender); err != nil {
		return nil, err
	}
	for name, value := range msg.Headers {
		if err := checkHeaderValue(name, name+value); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer

	// Write headers
	fmt.Fprintf(&buf, "From: %s\r\n", sender)
	writeAddressHeader(&buf, "To", msg.Recipients.To)
	writeAddressHeader(&buf, "Cc", msg.Recipients.Cc)
	writeAddressHeader(&buf, "Bcc", msg.Recipients.Bcc)
	writeAddressHeader(&buf, "Reply-To", msg.ReplyTo)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Content.Subject))
	for _, name := range sortedKeys(msg.Headers) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, msg.Headers[name])
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	// Write body part
	bodyHeader := make(textproto.MIMEHeader)
	if msg.Content.HTML != "" {
		bodyHeader.Set("Content-Type", "text/html; charset=UTF-8")
		part, err := writer.CreatePart(bodyHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(msg.Content.HTML))
	} else if msg.Content.PlainText != "" {
		bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
		part, err := writer.CreatePart(bodyHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(msg.Content.PlainText))
	}

	// Write attachments
	for _, att := range msg.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.ContentInBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content for attachment %q: %w", att.Name, err)
		}

		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", att.ContentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Name)))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}

		part.Write([]byte(encodeBase64WithLineBreaks(content)))
	}

	writer.Close()
	return buf.Bytes(), nil
}

func writeAddressHeader(buf *bytes.Buffer, name string, addrs []email.Address) {
	if len(addrs) == 0 {
		return
	}
	fmt.Fprintf(buf, "%s: %s\r\n", name, strings.Join(formatAddresses(addrs), ", "))
}

// formatAddresses renders addresses in RFC 5322 form, quoting display names
// where needed.
func formatAddresses(addrs []email.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.DisplayName == "" {
			out = append(out, a.Address)
			continue
		}
		out = append(out, (&mail.Address{Name: a.DisplayName, Address: a.Address}).String())
	}
	return out
}

// checkHeaderValue rejects line breaks, which would start a new header line
// in the raw message.
func checkHeaderValue(name, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("header %q contains a line break", name)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
