// Package email defines the data model shared by the mailer and its delivery
// backends: the raw send request a host supplies and the canonical message
// handed to a mail capability.
package email

// Address is a single mailbox with an optional display name.
type Address struct {
	Address     string `json:"address" yaml:"address"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
}

// Attachment is a file attached to a message. The content is supplied
// already base64-encoded and is passed through untouched.
type Attachment struct {
	Name            string `json:"name" yaml:"name"`
	ContentType     string `json:"contentType" yaml:"contentType"`
	ContentInBase64 string `json:"contentInBase64" yaml:"contentInBase64"`
}

// SendOptions is the raw request a host passes to the mailer. Fields not
// listed here are dropped when decoding.
type SendOptions struct {
	From    AddressInput `json:"from" yaml:"from"`
	To      AddressInput `json:"to" yaml:"to"`
	Cc      AddressInput `json:"cc" yaml:"cc"`
	Bcc     AddressInput `json:"bcc" yaml:"bcc"`
	ReplyTo AddressInput `json:"replyTo" yaml:"replyTo"`

	Subject string `json:"subject" yaml:"subject"`
	Text    string `json:"text" yaml:"text"`
	HTML    string `json:"html" yaml:"html"`

	// Pass-through fields, copied verbatim into the canonical message.
	Attachments                   []Attachment      `json:"attachments" yaml:"attachments"`
	Headers                       map[string]string `json:"headers" yaml:"headers"`
	DisableUserEngagementTracking *bool             `json:"disableUserEngagementTracking" yaml:"disableUserEngagementTracking"`
}

// Content holds the subject and bodies of a canonical message.
type Content struct {
	Subject   string `json:"subject"`
	PlainText string `json:"plainText"`
	HTML      string `json:"html"`
}

// Recipients holds the normalized recipient lists. A nil list means the
// field was not supplied and is left out of JSON; an empty list is encoded
// as [].
type Recipients struct {
	To  []Address `json:"to,omitzero"`
	Cc  []Address `json:"cc,omitzero"`
	Bcc []Address `json:"bcc,omitzero"`
}

// Message is the canonical, fully normalized send request.
type Message struct {
	SenderAddress string     `json:"senderAddress"`
	ReplyTo       []Address  `json:"replyTo,omitzero"`
	Content       Content    `json:"content"`
	Recipients    Recipients `json:"recipients"`

	Attachments                   []Attachment      `json:"attachments,omitempty"`
	Headers                       map[string]string `json:"headers,omitempty"`
	DisableUserEngagementTracking *bool             `json:"disableUserEngagementTracking,omitempty"`
}

// Send statuses reported by mail capabilities.
const (
	StatusNotStarted = "NotStarted"
	StatusRunning    = "Running"
	StatusSucceeded  = "Succeeded"
	StatusFailed     = "Failed"
	StatusCanceled   = "Canceled"
)

// SendResult is the outcome reported by a mail capability.
type SendResult struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failure reported by the remote service.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
