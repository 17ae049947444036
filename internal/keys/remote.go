package keys

import (
	"context"
	"net/http"
	"strings"
)

// keyListingPath is the sub-path on the remote key service that returns
// the JSON object of service names to API keys.
const keyListingPath = "/llm-keys"

// RemoteSource fetches keys from a centrally managed HTTP key service.
// It is the highest-precedence source: in managed deployments it wins over
// every local fallback. The optional APIKey authenticates to the key
// service itself and is unrelated to the LLM keys it returns.
type RemoteSource struct {
	// BaseURL is the key service root; the listing path is appended.
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// HTTPClient is optional; defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

func (s *RemoteSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return defaultHTTPClient
}

// ID implements Source.
func (*RemoteSource) ID() string { return "remote" }

// Available reports whether a base URL is configured.
func (s *RemoteSource) Available() bool {
	return s.BaseURL != ""
}

// Key fetches the key listing and extracts the entry for service.
func (s *RemoteSource) Key(ctx context.Context, service string) (string, error) {
	header := http.Header{}
	if s.APIKey != "" {
		header.Set("X-API-Key", s.APIKey)
	}

	url := strings.TrimSuffix(s.BaseURL, "/") + keyListingPath
	m, status, err := fetchKeyMap(ctx, s.httpClient(), url, header)
	if err != nil {
		if status == 0 {
			return "", sourceMiss(s.ID(), ReasonTransport, err)
		}
		return "", sourceMiss(s.ID(), ReasonProtocol, err)
	}

	key, ok := lookupService(m, service)
	if !ok {
		return "", sourceMiss(s.ID(), ReasonNoMatch, nil)
	}
	return key, nil
}
