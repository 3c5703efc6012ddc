package acs

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ConnectionString holds the parts of an ACS resource connection string,
// "endpoint=https://<resource>.communication.azure.com/;accesskey=<key>".
type ConnectionString struct {
	Endpoint  string
	AccessKey string
}

// ParseConnectionString splits and validates an ACS connection string.
// Keys are case-insensitive; values may contain '='.
func ParseConnectionString(s string) (*ConnectionString, error) {
	cs := &ConnectionString{}

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid connection string segment %q", part)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "endpoint":
			cs.Endpoint = strings.TrimSpace(value)
		case "accesskey":
			cs.AccessKey = strings.TrimSpace(value)
		}
	}

	if cs.Endpoint == "" || cs.AccessKey == "" {
		return nil, fmt.Errorf("connection string must contain endpoint and accesskey")
	}
	if _, err := normalizeEndpoint(cs.Endpoint); err != nil {
		return nil, err
	}
	if _, err := base64.StdEncoding.DecodeString(cs.AccessKey); err != nil {
		return nil, fmt.Errorf("access key is not valid base64: %w", err)
	}

	return cs, nil
}

// normalizeEndpoint validates an endpoint URL and strips the trailing slash.
func normalizeEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: expected an http(s) URL", endpoint)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
