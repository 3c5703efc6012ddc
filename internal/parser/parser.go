// Package parser imports RFC 5322 email messages, with MIME multipart
// support, as send requests.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/shineum/acs-mail-lite/internal/email"
)

// Parse parses a raw RFC 5322 email message into send options.
// It handles plain text messages, multipart messages with text/html bodies,
// and attachments. Unrecognized MIME parts are logged as warnings.
func Parse(raw []byte) (*email.SendOptions, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.SendOptions{
		From:    parseAddressList(msg.Header.Get("From")),
		To:      parseAddressList(msg.Header.Get("To")),
		Cc:      parseAddressList(msg.Header.Get("Cc")),
		Bcc:     parseAddressList(msg.Header.Get("Bcc")),
		ReplyTo: parseAddressList(msg.Header.Get("Reply-To")),
		Subject: decodeHeader(msg.Header.Get("Subject")),
		Headers: customHeaders(msg.Header),
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If content type is unparseable, treat as plain text
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		result.Text = string(body)
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	switch mediaType {
	case "text/plain":
		result.Text = string(body)
	case "text/html":
		result.HTML = string(body)
	default:
		slog.Warn("unrecognized top-level content type",
			"content_type", mediaType,
		)
		result.Text = string(body)
	}

	return result, nil
}

// parseMultipart processes a multipart MIME message body, extracting text/plain,
// text/html parts and attachments.
func parseMultipart(body io.Reader, boundary string, result *email.SendOptions) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		contentDisposition := part.Header.Get("Content-Disposition")
		isAttachment := strings.HasPrefix(contentDisposition, "attachment")

		// Check for nested multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nestedBoundary, result); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
			}
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		if isAttachment {
			result.Attachments = append(result.Attachments, newAttachment(extractFilename(part, params), mediaType, content))
			continue
		}

		switch mediaType {
		case "text/plain":
			if result.Text == "" {
				result.Text = string(content)
			}
		case "text/html":
			if result.HTML == "" {
				result.HTML = string(content)
			}
		default:
			// Inline parts with a name are still attachments.
			if part.FileName() != "" || params["name"] != "" {
				result.Attachments = append(result.Attachments, newAttachment(extractFilename(part, params), mediaType, content))
			} else {
				slog.Warn("unrecognized MIME part, skipping",
					"content_type", mediaType,
					"disposition", contentDisposition,
				)
			}
		}
	}

	return nil
}

func newAttachment(name, contentType string, content []byte) email.Attachment {
	return email.Attachment{
		Name:            name,
		ContentType:     contentType,
		ContentInBase64: base64.StdEncoding.EncodeToString(content),
	}
}

// readPartContent reads the full content of a MIME part, handling
// Content-Transfer-Encoding (base64, quoted-printable).
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := part.Header.Get("Content-Transfer-Encoding")
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Try with RawStdEncoding for unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	default:
		// For "7bit", "8bit", "binary", "quoted-printable", or empty,
		// return raw content. Go's multipart reader handles QP internally.
		return raw, nil
	}
}

// extractFilename extracts the filename from a MIME part, checking both
// Content-Disposition and Content-Type parameters.
func extractFilename(part *multipart.Part, params map[string]string) string {
	if fn := part.FileName(); fn != "" {
		return fn
	}
	if name, ok := params["name"]; ok && name != "" {
		return name
	}
	// Every backend requires an attachment name.
	if mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		parts := strings.SplitN(mediaType, "/", 2)
		if len(parts) == 2 {
			return "attachment." + parts[1]
		}
	}
	return "attachment"
}

// parseAddressList turns an address header into a list of structured
// entries. An absent header yields no input. Entries that fail RFC 5322
// parsing are kept as raw text so the normalizer reports them.
func parseAddressList(raw string) email.AddressInput {
	if raw == "" {
		return email.NoAddress()
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		var entries []email.AddressEntry
		for _, p := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				entries = append(entries, email.TextEntry(trimmed))
			}
		}
		return email.AddressList(entries...)
	}

	entries := make([]email.AddressEntry, 0, len(addresses))
	for _, addr := range addresses {
		entries = append(entries, email.AddressEntryOf(email.Address{
			Address:     addr.Address,
			DisplayName: addr.Name,
		}))
	}
	return email.AddressList(entries...)
}

// customHeaders collects X-* headers. Repeated headers keep the first value.
func customHeaders(header mail.Header) map[string]string {
	var out map[string]string
	for key, values := range header {
		if !strings.HasPrefix(strings.ToLower(key), "x-") || len(values) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = decodeHeader(values[0])
	}
	return out
}

// decodeHeader decodes RFC 2047 encoded words, returning the input on failure.
func decodeHeader(s string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
