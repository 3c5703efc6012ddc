package azauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestManagedIdentity_IMDS(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("Metadata"); got != "true" {
			t.Errorf("Metadata header: got %q, want %q", got, "true")
		}
		q := r.URL.Query()
		if q.Get("api-version") != imdsAPIVersion {
			t.Errorf("api-version: got %q, want %q", q.Get("api-version"), imdsAPIVersion)
		}
		if q.Get("client_id") != "mi-client" {
			t.Errorf("client_id: got %q, want %q", q.Get("client_id"), "mi-client")
		}
		if q.Get("resource") != "https://communication.azure.com" {
			t.Errorf("resource: got %q", q.Get("resource"))
		}

		// IMDS encodes numbers as strings.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"imds-token","expires_in":"3599","token_type":"Bearer"}`))
	}))
	defer server.Close()

	mi := newManagedIdentityWithEndpoint("mi-client", "https://communication.azure.com", server.URL, "", server.Client())

	tok, err := mi.FetchToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "imds-token" {
		t.Errorf("token: got %q, want %q", tok.AccessToken, "imds-token")
	}
	if tok.ExpiresIn != 3599*time.Second {
		t.Errorf("expires in: got %v, want %v", tok.ExpiresIn, 3599*time.Second)
	}
}

func TestManagedIdentity_AppService(t *testing.T) {
	t.Parallel()

	expiresOn := time.Now().Add(time.Hour).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-IDENTITY-HEADER"); got != "secret-header" {
			t.Errorf("X-IDENTITY-HEADER: got %q, want %q", got, "secret-header")
		}
		if r.Header.Get("Metadata") != "" {
			t.Error("Metadata header should not be sent to App Service endpoint")
		}
		if got := r.URL.Query().Get("api-version"); got != appServiceAPIVersion {
			t.Errorf("api-version: got %q, want %q", got, appServiceAPIVersion)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"app-token","expires_on":"` + strconv.FormatInt(expiresOn, 10) + `"}`))
	}))
	defer server.Close()

	mi := newManagedIdentityWithEndpoint("mi-client", "https://communication.azure.com", server.URL, "secret-header", server.Client())

	tok, err := mi.FetchToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "app-token" {
		t.Errorf("token: got %q, want %q", tok.AccessToken, "app-token")
	}
	if tok.ExpiresIn < 58*time.Minute || tok.ExpiresIn > time.Hour {
		t.Errorf("expires in: got %v, want about 1h", tok.ExpiresIn)
	}
}

func TestManagedIdentity_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_request","error_description":"Identity not found"}`))
	}))
	defer server.Close()

	mi := newManagedIdentityWithEndpoint("unknown", "https://communication.azure.com", server.URL, "", server.Client())

	if _, err := mi.FetchToken(context.Background()); err == nil {
		t.Error("expected error for 400 response, got nil")
	}
}

func TestNewManagedIdentity_DetectsAppService(t *testing.T) {
	t.Setenv("IDENTITY_ENDPOINT", "http://localhost:8081/msi/token")
	t.Setenv("IDENTITY_HEADER", "hdr")

	mi := NewManagedIdentity("cid", "https://communication.azure.com", http.DefaultClient)
	if mi.endpoint != "http://localhost:8081/msi/token" {
		t.Errorf("endpoint: got %q", mi.endpoint)
	}
	if mi.identityHeader != "hdr" {
		t.Errorf("identity header: got %q, want %q", mi.identityHeader, "hdr")
	}
}

func TestNewManagedIdentity_DefaultsToIMDS(t *testing.T) {
	t.Setenv("IDENTITY_ENDPOINT", "")
	t.Setenv("IDENTITY_HEADER", "")

	mi := NewManagedIdentity("cid", "https://communication.azure.com", http.DefaultClient)
	if mi.endpoint != imdsEndpoint {
		t.Errorf("endpoint: got %q, want %q", mi.endpoint, imdsEndpoint)
	}
}
