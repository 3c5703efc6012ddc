package azauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// tokenResponse represents an OAuth2 token endpoint response. The managed
// identity endpoints encode the numeric fields as strings.
type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   seconds `json:"expires_in"`
	ExpiresOn   seconds `json:"expires_on"`
	TokenType   string  `json:"token_type"`
}

// seconds decodes a JSON number or a string holding a number.
type seconds int64

func (s *seconds) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid seconds value %q: %w", data, err)
	}
	*s = seconds(n)
	return nil
}

// lifetime returns how long the token stays valid, preferring expires_in
// and falling back to the absolute expires_on timestamp.
func (r *tokenResponse) lifetime(now time.Time) time.Duration {
	if r.ExpiresIn > 0 {
		return time.Duration(r.ExpiresIn) * time.Second
	}
	if r.ExpiresOn > 0 {
		return time.Unix(int64(r.ExpiresOn), 0).Sub(now)
	}
	return 0
}

// decodeToken parses a token endpoint body into a Token.
func decodeToken(body []byte, now time.Time) (*Token, error) {
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &Token{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.lifetime(now),
	}, nil
}
