package azauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientCredentials fetches tokens with the OAuth2 client credentials grant
// against a Microsoft Entra tenant.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
}

// NewClientCredentials creates a client credentials source for the given tenant.
func NewClientCredentials(tenantID, clientID, clientSecret, scope string, httpClient *http.Client) *ClientCredentials {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID)
	return NewClientCredentialsWithURL(tokenURL, clientID, clientSecret, scope, httpClient)
}

// NewClientCredentialsWithURL creates a client credentials source against an
// explicit token endpoint.
func NewClientCredentialsWithURL(tokenURL, clientID, clientSecret, scope string, httpClient *http.Client) *ClientCredentials {
	return &ClientCredentials{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		httpClient:   httpClient,
	}
}

// FetchToken requests a new token from the token endpoint.
func (c *ClientCredentials) FetchToken(ctx context.Context) (*Token, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {c.scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	return decodeToken(body, time.Now())
}
