package transport

import "net/http"

// Signer adds authentication headers to an outgoing request.
type Signer interface {
	Sign(req *http.Request) error
}

// APIKeyHeader authenticates with a key in a custom header.
// Used by: Jules (x-goog-api-key).
type APIKeyHeader struct {
	HeaderName   string
	APIKey       string
	ExtraHeaders map[string]string
}

func (s *APIKeyHeader) Sign(req *http.Request) error {
	req.Header.Set(s.HeaderName, s.APIKey)
	for k, v := range s.ExtraHeaders {
		req.Header.Set(k, v)
	}
	return nil
}

// BearerToken authenticates with an Authorization: Bearer header.
// Used by: GitHub.
type BearerToken struct {
	Token        string
	ExtraHeaders map[string]string
}

func (s *BearerToken) Sign(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+s.Token)
	for k, v := range s.ExtraHeaders {
		req.Header.Set(k, v)
	}
	return nil
}
