// Package graph implements a mail capability that sends emails via the
// Microsoft Graph API.
package graph

import (
	"sort"

	"github.com/shineum/acs-mail-lite/internal/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

// sendMailMessage represents the message portion of a sendMail request.
type sendMailMessage struct {
	Subject                string            `json:"subject"`
	Body                   messageBody       `json:"body"`
	ToRecipients           []recipient       `json:"toRecipients"`
	CcRecipients           []recipient       `json:"ccRecipients,omitempty"`
	BccRecipients          []recipient       `json:"bccRecipients,omitempty"`
	ReplyTo                []recipient       `json:"replyTo,omitempty"`
	InternetMessageHeaders []messageHeader   `json:"internetMessageHeaders,omitempty"`
	Attachments            []graphAttachment `json:"attachments,omitempty"`
}

// messageBody represents the body of an email message.
type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// recipient represents an email recipient.
type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

// emailAddress represents an email address in a Graph API request.
type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type messageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// graphAttachment represents a file attachment in a Graph API request.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

// graphError represents the error detail in a Graph API error response.
type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a canonical message into a Graph API sendMail request body.
func buildSendMailRequest(msg *email.Message) *sendMailRequest {
	// Determine body content type and content
	body := messageBody{
		ContentType: "text",
		Content:     msg.Content.PlainText,
	}
	if msg.Content.HTML != "" {
		body.ContentType = "html"
		body.Content = msg.Content.HTML
	}

	// Graph only accepts custom headers prefixed with x- or X-.
	var headers []messageHeader
	names := make([]string, 0, len(msg.Headers))
	for name := range msg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		headers = append(headers, messageHeader{Name: name, Value: msg.Headers[name]})
	}

	// Attachment content is already base64 and passes through unchanged.
	attachments := make([]graphAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Name,
			ContentType:  att.ContentType,
			ContentBytes: att.ContentInBase64,
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:                msg.Content.Subject,
			Body:                   body,
			ToRecipients:           toRecipients(msg.Recipients.To),
			CcRecipients:           toRecipients(msg.Recipients.Cc),
			BccRecipients:          toRecipients(msg.Recipients.Bcc),
			ReplyTo:                toRecipients(msg.ReplyTo),
			InternetMessageHeaders: headers,
			Attachments:            attachments,
		},
		SaveToSentItems: true,
	}
}

func toRecipients(addrs []email.Address) []recipient {
	out := make([]recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, recipient{
			EmailAddress: emailAddress{Address: a.Address, Name: a.DisplayName},
		})
	}
	return out
}
