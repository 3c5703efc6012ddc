// Package provider defines the contract for mail capabilities, the backends
// that transmit a canonical message and report its outcome.
package provider

import (
	"context"

	"github.com/shineum/acs-mail-lite/internal/email"
)

// Capability is the interface that email delivery backends must implement.
// Sending is two-phase: BeginSend submits the message, and the returned
// Poller waits for the backend to report completion.
type Capability interface {
	// BeginSend submits msg for delivery. It returns once the backend has
	// accepted the request, not when delivery has finished.
	BeginSend(ctx context.Context, msg *email.Message) (Poller, error)

	// Name returns the human-readable name of this backend.
	Name() string
}

// Poller waits for a submitted message to reach a terminal state.
type Poller interface {
	PollUntilDone(ctx context.Context) (*email.SendResult, error)
}

// Completed returns a Poller for backends that finish within BeginSend.
func Completed(result *email.SendResult) Poller {
	return completed{result: result}
}

type completed struct {
	result *email.SendResult
}

func (c completed) PollUntilDone(context.Context) (*email.SendResult, error) {
	return c.result, nil
}
