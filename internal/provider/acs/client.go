// Package acs implements a mail capability backed by the Azure Communication
// Services Email REST API.
package acs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/acs-mail-lite/internal/azauth"
	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
)

// apiVersion is the ACS Email REST API version this client speaks.
const apiVersion = "2023-03-31"

// defaultPollInterval is used between status polls when the service sends
// no Retry-After header.
const defaultPollInterval = 2 * time.Second

// tokenResource is the resource managed identity tokens are requested for.
const tokenResource = "https://communication.azure.com"

// Options configures a Client. They mirror the provider options a host
// passes to init.
type Options struct {
	// Endpoint is a connection string, or the resource URL when managed
	// identity is used.
	Endpoint string

	// UseManagedIdentity together with IdentityClientID selects a
	// user-assigned managed identity credential.
	UseManagedIdentity bool
	IdentityClientID   string

	// PollInterval overrides the delay between status polls.
	PollInterval time.Duration

	// HTTPClient is used for all requests, including token requests.
	HTTPClient *http.Client
}

// Client sends email through an ACS resource.
// @MX:ANCHOR: [AUTO] External system integration point for Azure Communication Services
// @MX:REASON: All email delivery flows through this capability when ACS is configured
type Client struct {
	endpoint     string
	auth         authorizer
	httpClient   *http.Client
	pollInterval time.Duration
	newID        func() string
}

// New creates a Client. A managed identity credential is used only when
// both UseManagedIdentity and IdentityClientID are set; otherwise Endpoint
// must be a connection string carrying the access key.
func New(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		httpClient:   httpClient,
		pollInterval: opts.PollInterval,
		newID:        uuid.NewString,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}

	if opts.UseManagedIdentity && opts.IdentityClientID != "" {
		endpoint := opts.Endpoint
		if cs, err := ParseConnectionString(opts.Endpoint); err == nil {
			endpoint = cs.Endpoint
		}
		normalized, err := normalizeEndpoint(endpoint)
		if err != nil {
			return nil, err
		}
		c.endpoint = normalized
		c.auth = &bearerAuthorizer{
			tokens: azauth.NewTokenCache(azauth.NewManagedIdentity(opts.IdentityClientID, tokenResource, httpClient)),
		}
		return c, nil
	}

	cs, err := ParseConnectionString(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ACS connection string: %w", err)
	}
	normalized, err := normalizeEndpoint(cs.Endpoint)
	if err != nil {
		return nil, err
	}
	auth, err := newHMACAuthorizer(cs.AccessKey)
	if err != nil {
		return nil, err
	}
	c.endpoint = normalized
	c.auth = auth
	return c, nil
}

// Name returns the capability name.
func (c *Client) Name() string {
	return "acs"
}

// BeginSend submits msg to the emails:send operation and returns a poller
// for the long-running operation the service starts.
func (c *Client) BeginSend(ctx context.Context, msg *email.Message) (provider.Poller, error) {
	body, err := json.Marshal(newSendRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	operationID := c.newID()
	url := c.endpoint + "/emails:send?api-version=" + apiVersion

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Operation-Id", operationID)
	req.Header.Set("x-ms-client-request-id", c.newID())

	resp, respBody, err := c.do(ctx, req, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusAccepted {
		return nil, newResponseError(resp.StatusCode, respBody)
	}

	status := &operationStatus{ID: operationID, Status: email.StatusRunning}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, status); err != nil {
			return nil, fmt.Errorf("failed to parse send response: %w", err)
		}
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		location = c.endpoint + "/emails/operations/" + status.ID + "?api-version=" + apiVersion
	}

	slog.Debug("ACS accepted email",
		"operation_id", status.ID,
		"status", status.Status,
	)

	return &poller{
		client:     c,
		location:   location,
		status:     status,
		retryAfter: resp.Header.Get("Retry-After"),
	}, nil
}

// do signs and executes req and reads the whole response body.
func (c *Client) do(ctx context.Context, req *http.Request, body []byte) (*http.Response, []byte, error) {
	if err := c.auth.authorize(ctx, req, body); err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp, respBody, nil
}

// poller tracks a running emails:send operation.
type poller struct {
	client     *Client
	location   string
	status     *operationStatus
	retryAfter string
}

// PollUntilDone polls the operation status until it reaches a terminal
// state. A Failed or Canceled operation returns its result together with an
// *OperationError.
func (p *poller) PollUntilDone(ctx context.Context) (*email.SendResult, error) {
	for !p.status.terminal() {
		if err := sleepWithContext(ctx, p.delay()); err != nil {
			return nil, fmt.Errorf("context cancelled while waiting for email operation: %w", err)
		}
		if err := p.poll(ctx); err != nil {
			return nil, err
		}
	}

	result := p.status.result()
	if p.status.Status != email.StatusSucceeded {
		opErr := &OperationError{OperationID: p.status.ID, Status: p.status.Status}
		if p.status.Error != nil {
			opErr.Code = p.status.Error.Code
			opErr.Message = p.status.Error.Message
		}
		return result, opErr
	}

	slog.Debug("ACS email operation succeeded", "operation_id", p.status.ID)
	return result, nil
}

// poll fetches the current operation status once.
func (p *poller) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.location, nil)
	if err != nil {
		return fmt.Errorf("failed to create status request: %w", err)
	}

	resp, body, err := p.client.do(ctx, req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return newResponseError(resp.StatusCode, body)
	}

	status := &operationStatus{}
	if err := json.Unmarshal(body, status); err != nil {
		return fmt.Errorf("failed to parse operation status: %w", err)
	}
	if status.ID == "" {
		status.ID = p.status.ID
	}

	slog.Debug("ACS email operation status",
		"operation_id", status.ID,
		"status", status.Status,
	)

	p.status = status
	p.retryAfter = resp.Header.Get("Retry-After")
	return nil
}

// delay returns the wait before the next poll, honouring Retry-After.
func (p *poller) delay() time.Duration {
	if p.retryAfter != "" {
		if seconds, err := strconv.Atoi(p.retryAfter); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return p.client.pollInterval
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
