package acs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// authorizer signs an outgoing request.
type authorizer interface {
	authorize(ctx context.Context, req *http.Request, body []byte) error
}

// hmacAuthorizer signs requests with the resource access key.
type hmacAuthorizer struct {
	key []byte
	now func() time.Time
}

func newHMACAuthorizer(accessKey string) (*hmacAuthorizer, error) {
	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return nil, fmt.Errorf("access key is not valid base64: %w", err)
	}
	return &hmacAuthorizer{key: key, now: time.Now}, nil
}

func (a *hmacAuthorizer) authorize(_ context.Context, req *http.Request, body []byte) error {
	sum := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(sum[:])
	date := a.now().UTC().Format(http.TimeFormat)

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization", "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+
		a.sign(req.Method, req.URL.RequestURI(), date, req.URL.Host, contentHash))

	return nil
}

// sign computes the request signature over the method, path and query, and
// the signed header values.
func (a *hmacAuthorizer) sign(method, pathAndQuery, date, host, contentHash string) string {
	stringToSign := method + "\n" + pathAndQuery + "\n" + date + ";" + host + ";" + contentHash
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// tokenSource is satisfied by *azauth.TokenCache.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// bearerAuthorizer attaches a Microsoft Entra access token.
type bearerAuthorizer struct {
	tokens tokenSource
}

func (a *bearerAuthorizer) authorize(ctx context.Context, req *http.Request, _ []byte) error {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
