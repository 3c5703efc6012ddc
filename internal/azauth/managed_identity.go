package azauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	// imdsEndpoint is the Azure Instance Metadata Service token endpoint.
	imdsEndpoint   = "http://169.254.169.254/metadata/identity/oauth2/token"
	imdsAPIVersion = "2018-02-01"

	// appServiceAPIVersion is used when IDENTITY_ENDPOINT is provided by
	// App Service, Functions or Container Apps.
	appServiceAPIVersion = "2019-08-01"
)

// ManagedIdentity fetches tokens for a user-assigned managed identity.
type ManagedIdentity struct {
	clientID       string
	resource       string
	endpoint       string
	identityHeader string
	httpClient     *http.Client
}

// NewManagedIdentity creates a managed identity source for the identity
// with the given client ID, requesting tokens for resource. The hosting
// environment is detected from IDENTITY_ENDPOINT and IDENTITY_HEADER;
// without them the IMDS endpoint is used.
func NewManagedIdentity(clientID, resource string, httpClient *http.Client) *ManagedIdentity {
	mi := &ManagedIdentity{
		clientID:   clientID,
		resource:   resource,
		endpoint:   imdsEndpoint,
		httpClient: httpClient,
	}

	endpoint, header := os.Getenv("IDENTITY_ENDPOINT"), os.Getenv("IDENTITY_HEADER")
	if endpoint != "" && header != "" {
		mi.endpoint = endpoint
		mi.identityHeader = header
	}

	return mi
}

// newManagedIdentityWithEndpoint creates a source against an explicit
// endpoint, used for testing. A non-empty identityHeader selects the App
// Service protocol.
func newManagedIdentityWithEndpoint(clientID, resource, endpoint, identityHeader string, httpClient *http.Client) *ManagedIdentity {
	return &ManagedIdentity{
		clientID:       clientID,
		resource:       resource,
		endpoint:       endpoint,
		identityHeader: identityHeader,
		httpClient:     httpClient,
	}
}

// FetchToken requests a new token from the managed identity endpoint.
func (m *ManagedIdentity) FetchToken(ctx context.Context) (*Token, error) {
	query := url.Values{
		"resource":  {m.resource},
		"client_id": {m.clientID},
	}
	if m.identityHeader != "" {
		query.Set("api-version", appServiceAPIVersion)
	} else {
		query.Set("api-version", imdsAPIVersion)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create managed identity request: %w", err)
	}
	if m.identityHeader != "" {
		req.Header.Set("X-IDENTITY-HEADER", m.identityHeader)
	} else {
		req.Header.Set("Metadata", "true")
	}

	slog.Debug("requesting managed identity token",
		"client_id", m.clientID,
		"resource", m.resource,
	)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("managed identity request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read managed identity response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("managed identity endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	return decodeToken(body, time.Now())
}
