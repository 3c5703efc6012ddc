package acs

import (
	"github.com/shineum/acs-mail-lite/internal/email"
)

// sendRequest is the request body of the emails:send operation.
type sendRequest struct {
	SenderAddress                  string             `json:"senderAddress"`
	Content                        email.Content      `json:"content"`
	Recipients                     email.Recipients   `json:"recipients"`
	ReplyTo                        []email.Address    `json:"replyTo,omitzero"`
	Attachments                    []email.Attachment `json:"attachments,omitempty"`
	Headers                        map[string]string  `json:"headers,omitempty"`
	UserEngagementTrackingDisabled *bool              `json:"userEngagementTrackingDisabled,omitempty"`
}

// operationStatus is the body returned by emails:send and by the
// operation status endpoint.
type operationStatus struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  *errorDetail `json:"error,omitempty"`
}

// errorResponse wraps an error returned by the service.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail is the error detail in service responses.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newSendRequest converts a canonical message into the wire request.
func newSendRequest(msg *email.Message) *sendRequest {
	return &sendRequest{
		SenderAddress:                  msg.SenderAddress,
		Content:                        msg.Content,
		Recipients:                     msg.Recipients,
		ReplyTo:                        msg.ReplyTo,
		Attachments:                    msg.Attachments,
		Headers:                        msg.Headers,
		UserEngagementTrackingDisabled: msg.DisableUserEngagementTracking,
	}
}

// result converts an operation status into a send result.
func (s *operationStatus) result() *email.SendResult {
	r := &email.SendResult{
		ID:     s.ID,
		Status: s.Status,
	}
	if s.Error != nil {
		r.Error = &email.ErrorDetail{Code: s.Error.Code, Message: s.Error.Message}
	}
	return r
}

// terminal reports whether the operation will not change state again.
func (s *operationStatus) terminal() bool {
	switch s.Status {
	case email.StatusSucceeded, email.StatusFailed, email.StatusCanceled:
		return true
	default:
		return false
	}
}
