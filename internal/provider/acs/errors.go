package acs

import (
	"encoding/json"
	"fmt"
)

// ResponseError is returned when the service answers with an unexpected
// HTTP status.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ACS email error (HTTP %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("ACS email error (HTTP %d): %s", e.StatusCode, e.Message)
}

// newResponseError builds a ResponseError from a response body, using the
// service error envelope when present.
func newResponseError(statusCode int, body []byte) *ResponseError {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		return &ResponseError{
			StatusCode: statusCode,
			Code:       resp.Error.Code,
			Message:    resp.Error.Message,
		}
	}
	return &ResponseError{StatusCode: statusCode, Message: string(body)}
}

// OperationError is returned when a send operation ends as Failed or
// Canceled.
type OperationError struct {
	OperationID string
	Status      string
	Code        string
	Message     string
}

func (e *OperationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("email operation %s %s (%s): %s", e.OperationID, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("email operation %s %s", e.OperationID, e.Status)
}
