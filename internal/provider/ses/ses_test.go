package ses

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func textMessage(subject, body string) *email.Message {
	return &email.Message{
		SenderAddress: "from@example.com",
		Recipients:    email.Recipients{To: []email.Address{{Address: "to@example.com"}}},
		Content:       email.Content{Subject: subject, PlainText: body},
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient("sender@example.com", &mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestBeginSend_SimpleTextEmail(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	poller, err := p.BeginSend(context.Background(), textMessage("Test Subject", "Hello, World!"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := poller.PollUntilDone(context.Background())
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	if result.ID != "test-message-id" {
		t.Errorf("result ID: got %q, want %q", result.ID, "test-message-id")
	}
	if result.Status != email.StatusSucceeded {
		t.Errorf("result Status: got %q, want %q", result.Status, email.StatusSucceeded)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Simple == nil {
		t.Fatal("expected simple email content, got nil")
	}
	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "sender@example.com")
	}
	if got := *input.Content.Simple.Subject.Data; got != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", got, "Test Subject")
	}
	if got := *input.Content.Simple.Body.Text.Data; got != "Hello, World!" {
		t.Errorf("TextBody: got %q, want %q", got, "Hello, World!")
	}
	if input.Content.Simple.Body.Html != nil {
		t.Error("expected no HTML body")
	}
}

func TestBeginSend_SenderFallsBackToMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("", mock)

	if _, err := p.BeginSend(context.Background(), textMessage("s", "b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := *mock.lastInput.FromEmailAddress; got != "from@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "from@example.com")
	}
}

func TestBeginSend_WithRecipients(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	msg := &email.Message{
		ReplyTo: []email.Address{{Address: "reply@example.com", DisplayName: "Help Desk"}},
		Recipients: email.Recipients{
			To:  []email.Address{{Address: "to1@example.com", DisplayName: "Alice"}, {Address: "to2@example.com"}},
			Cc:  []email.Address{{Address: "cc@example.com"}},
			Bcc: []email.Address{{Address: "bcc@example.com"}},
		},
		Content: email.Content{Subject: "Multi-recipient", PlainText: "Hello"},
		Headers: map[string]string{"X-Trace": "abc"},
	}

	if _, err := p.BeginSend(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.lastInput
	dest := input.Destination
	if len(dest.ToAddresses) != 2 {
		t.Fatalf("ToAddresses: got %d, want 2", len(dest.ToAddresses))
	}
	if got := dest.ToAddresses[0]; got != `"Alice" <to1@example.com>` {
		t.Errorf("ToAddresses[0]: got %q", got)
	}
	if got := dest.ToAddresses[1]; got != "to2@example.com" {
		t.Errorf("ToAddresses[1]: got %q", got)
	}
	if len(dest.CcAddresses) != 1 {
		t.Errorf("CcAddresses: got %d, want 1", len(dest.CcAddresses))
	}
	if len(dest.BccAddresses) != 1 {
		t.Errorf("BccAddresses: got %d, want 1", len(dest.BccAddresses))
	}
	if len(input.ReplyToAddresses) != 1 || input.ReplyToAddresses[0] != `"Help Desk" <reply@example.com>` {
		t.Errorf("ReplyToAddresses: got %v", input.ReplyToAddresses)
	}

	headers := input.Content.Simple.Headers
	if len(headers) != 1 || aws.ToString(headers[0].Name) != "X-Trace" || aws.ToString(headers[0].Value) != "abc" {
		t.Errorf("Headers: got %+v", headers)
	}
}

func TestBeginSend_WithAttachments(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	msg := textMessage("With Attachment", "See attachment")
	msg.Attachments = []email.Attachment{
		{
			Name:            "test.txt",
			ContentType:     "text/plain",
			ContentInBase64: base64.StdEncoding.EncodeToString([]byte("file content")),
		},
	}

	if _, err := p.BeginSend(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.lastInput
	if input.Content.Raw == nil {
		t.Fatal("expected raw email content for attachment, got nil")
	}
	if input.Content.Simple != nil {
		t.Error("expected no simple content when using raw message")
	}

	rawStr := string(input.Content.Raw.Data)
	if !strings.Contains(rawStr, "From: sender@example.com") {
		t.Error("raw message missing From header")
	}
	if !strings.Contains(rawStr, "To: to@example.com") {
		t.Error("raw message missing To header")
	}
	if !strings.Contains(rawStr, "test.txt") {
		t.Error("raw message missing attachment filename")
	}
	// The attachment is re-encoded from its decoded bytes.
	if !strings.Contains(rawStr, base64.StdEncoding.EncodeToString([]byte("file content"))) {
		t.Error("raw message missing attachment content")
	}
}

func TestBeginSend_InvalidAttachmentContent(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	msg := textMessage("Bad", "x")
	msg.Attachments = []email.Attachment{{Name: "a.bin", ContentType: "application/octet-stream", ContentInBase64: "not base64!"}}

	if _, err := p.BeginSend(context.Background(), msg); err == nil {
		t.Fatal("expected error for invalid base64 attachment")
	}
	if mock.callCount != 0 {
		t.Errorf("call count: got %d, want 0", mock.callCount)
	}
}

func TestBeginSend_APIErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("throttled")
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, apiErr
		},
	}
	p := NewWithClient("sender@example.com", mock)

	_, err := p.BeginSend(context.Background(), textMessage("Fail Test", "Hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, apiErr) {
		t.Errorf("error should wrap the API error, got: %v", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}

func TestBuildSimpleInput(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		Recipients: email.Recipients{
			To:  []email.Address{{Address: "to@example.com"}},
			Cc:  []email.Address{{Address: "cc@example.com"}},
			Bcc: []email.Address{{Address: "bcc@example.com"}},
		},
		Content: email.Content{Subject: "Test", PlainText: "text", HTML: "<p>html</p>"},
	}

	input := buildSimpleInput("sender@example.com", msg)

	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "sender@example.com")
	}
	if input.Content.Simple.Body.Html == nil {
		t.Fatal("expected HTML body")
	}
	if input.Content.Simple.Body.Text == nil {
		t.Fatal("expected text body")
	}
	if got := *input.Content.Simple.Body.Html.Charset; got != "UTF-8" {
		t.Errorf("HTML charset: got %q, want %q", got, "UTF-8")
	}
	if input.ReplyToAddresses != nil {
		t.Errorf("ReplyToAddresses: got %v, want nil", input.ReplyToAddresses)
	}
}

func TestBuildRawMessage(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		ReplyTo: []email.Address{{Address: "reply@example.com"}},
		Recipients: email.Recipients{
			To: []email.Address{{Address: "to@example.com"}},
			Cc: []email.Address{{Address: "cc@example.com"}},
		},
		Content: email.Content{Subject: "Raw Test", PlainText: "text body"},
		Headers: map[string]string{"X-Campaign": "spring"},
		Attachments: []email.Attachment{
			{
				Name:            "doc.pdf",
				ContentType:     "application/pdf",
				ContentInBase64: base64.StdEncoding.EncodeToString([]byte("pdf content")),
			},
		},
	}

	raw, err := buildRawMessage("sender@example.com", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rawStr := string(raw)
	checks := []struct {
		name     string
		contains string
	}{
		{"From header", "From: sender@example.com"},
		{"To header", "To: to@example.com"},
		{"Cc header", "Cc: cc@example.com"},
		{"Reply-To header", "Reply-To: reply@example.com"},
		{"Subject header", "Subject: Raw Test"},
		{"custom header", "X-Campaign: spring"},
		{"MIME-Version", "MIME-Version: 1.0"},
		{"multipart boundary", "multipart/mixed"},
		{"body content type", "text/plain"},
		{"attachment content type", "application/pdf"},
		{"attachment filename", "doc.pdf"},
		{"base64 encoding", "Content-Transfer-Encoding: base64"},
	}

	for _, check := range checks {
		if !strings.Contains(rawStr, check.contains) {
			t.Errorf("raw message missing %s: expected to contain %q", check.name, check.contains)
		}
	}
}

func TestBuildRawMessage_RejectsLineBreaksInHeaders(t *testing.T) {
	t.Parallel()

	attachment := email.Attachment{Name: "a.txt", ContentType: "text/plain", ContentInBase64: "eA=="}
	tests := []struct {
		name    string
		sender  string
		headers map[string]string
	}{
		{"value with CRLF", "sender@example.com", map[string]string{"X-Id": "1\r\nBcc: victim@example.com"}},
		{"value with bare LF", "sender@example.com", map[string]string{"X-Id": "1\nBcc: victim@example.com"}},
		{"name with CRLF", "sender@example.com", map[string]string{"X-Id\r\nBcc": "victim@example.com"}},
		{"sender with CRLF", "sender@example.com\r\nBcc: victim@example.com", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := &email.Message{
				Recipients:  email.Recipients{To: []email.Address{{Address: "to@example.com"}}},
				Content:     email.Content{Subject: "Injected", PlainText: "x"},
				Headers:     tt.headers,
				Attachments: []email.Attachment{attachment},
			}

			raw, err := buildRawMessage(tt.sender, msg)
			if err == nil {
				t.Fatalf("expected error, got raw message:\n%s", raw)
			}
		})
	}
}

func TestBeginSend_HeaderLineBreakNotSent(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	msg := textMessage("Injected", "x")
	msg.Headers = map[string]string{"X-Id": "1\r\nBcc: victim@example.com"}
	msg.Attachments = []email.Attachment{{Name: "a.txt", ContentType: "text/plain", ContentInBase64: "eA=="}}

	if _, err := p.BeginSend(context.Background(), msg); err == nil {
		t.Fatal("expected error for header with line break")
	}
	if mock.callCount != 0 {
		t.Errorf("call count: got %d, want 0", mock.callCount)
	}
}

func TestBuildRawMessage_HtmlBody(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		Recipients: email.Recipients{To: []email.Address{{Address: "to@example.com"}}},
		Content:    email.Content{Subject: "HTML Raw", HTML: "<h1>Hello</h1>"},
		Attachments: []email.Attachment{
			{Name: "a.txt", ContentType: "text/plain", ContentInBase64: "eA=="},
		},
	}

	raw, err := buildRawMessage("sender@example.com", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(raw), "text/html") {
		t.Error("expected text/html content type for HTML body")
	}
}

func TestEncodeBase64WithLineBreaks(t *testing.T) {
	t.Parallel()

	// Create data that produces a long base64 string
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}

	encoded := encodeBase64WithLineBreaks(data)
	lines := strings.Split(encoded, "\r\n")
	for i, line := range lines {
		if i < len(lines)-1 && len(line) != 76 {
			t.Errorf("line %d length: got %d, want 76", i, len(line))
		}
		if len(line) > 76 {
			t.Errorf("line %d exceeds 76 chars: got %d", i, len(line))
		}
	}
}

// Verify SESProvider implements provider.Capability.
func TestCapabilityInterface(t *testing.T) {
	t.Parallel()

	var _ provider.Capability = (*SESProvider)(nil)
}
