package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/acs-mail-lite/internal/azauth"
	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/provider"
)

const (
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	graphScope      = "https://graph.microsoft.com/.default"
)

// GraphProviderConfig holds the configuration for creating a GraphProvider.
type GraphProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Sender is the mailbox to send as. When empty the message's sender
	// address is used.
	Sender string
}

// GraphProvider sends emails via the Microsoft Graph API using OAuth2
// client credentials authentication.
// @MX:ANCHOR: [AUTO] External system integration point for Microsoft Graph API
// @MX:REASON: All email delivery flows through this provider when Graph is configured
type GraphProvider struct {
	sender     string
	graphURL   string
	httpClient *http.Client
	token      *azauth.TokenCache
}

// New creates a new GraphProvider with the given configuration.
func New(cfg GraphProviderConfig) *GraphProvider {
	client := &http.Client{Timeout: 30 * time.Second}

	return &GraphProvider{
		sender:     cfg.Sender,
		graphURL:   defaultGraphURL,
		httpClient: client,
		token: azauth.NewTokenCache(
			azauth.NewClientCredentials(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, graphScope, client),
		),
	}
}

// newWithOverrides creates a GraphProvider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg GraphProviderConfig, graphURL, tokenURL string, client *http.Client) *GraphProvider {
	return &GraphProvider{
		sender:     cfg.Sender,
		graphURL:   graphURL,
		httpClient: client,
		token: azauth.NewTokenCache(
			azauth.NewClientCredentialsWithURL(tokenURL, cfg.ClientID, cfg.ClientSecret, graphScope, client),
		),
	}
}

// BeginSend delivers the message via the Microsoft Graph sendMail endpoint.
// Graph accepts synchronously, so the returned poller is already complete.
// An HTTP 401 forces one token refresh and a single resend; every other
// failure is returned as is.
func (g *GraphProvider) BeginSend(ctx context.Context, msg *email.Message) (provider.Poller, error) {
	sender := g.sender
	if sender == "" {
		sender = msg.SenderAddress
	}
	if sender == "" {
		return nil, fmt.Errorf("graph: no sender mailbox configured")
	}

	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", g.graphURL, url.PathEscape(sender))

	requestID, err := g.doSendRequest(ctx, endpoint, bodyJSON)
	if sendErr, ok := err.(*sendError); ok && sendErr.statusCode == http.StatusUnauthorized {
		slog.Info("refreshing Graph API token after 401")
		if _, refreshErr := g.token.ForceRefresh(ctx); refreshErr != nil {
			return nil, fmt.Errorf("token refresh failed: %w", refreshErr)
		}
		requestID, err = g.doSendRequest(ctx, endpoint, bodyJSON)
	}
	if err != nil {
		return nil, err
	}

	return provider.Completed(&email.SendResult{
		ID:     requestID,
		Status: email.StatusSucceeded,
	}), nil
}

// Name returns the provider name.
func (g *GraphProvider) Name() string {
	return "msgraph"
}

// doSendRequest performs a single HTTP request to the Graph API sendMail
// endpoint and returns the request-id response header.
func (g *GraphProvider) doSendRequest(ctx context.Context, endpoint string, bodyJSON []byte) (string, error) {
	token, err := g.token.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("graph: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return resp.Header.Get("request-id"), nil
	}

	body, _ := io.ReadAll(resp.Body)

	var graphErrResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErrResp); jsonErr == nil && graphErrResp.Error.Message != "" {
		return "", &sendError{
			statusCode: resp.StatusCode,
			code:       graphErrResp.Error.Code,
			message:    graphErrResp.Error.Message,
		}
	}

	return "", &sendError{statusCode: resp.StatusCode, message: string(body)}
}

// sendError represents a non-success response from the Graph API.
type sendError struct {
	statusCode int
	code       string
	message    string
}

func (e *sendError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}
