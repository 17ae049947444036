package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// serviceAccountFile is the on-disk shape of an offline service-account
// credentials file: a UTF-8 JSON object with a required client_id and at
// least one of token or api_key. The remaining fields are informational
// and do not affect resolution. Both snake_case and camelCase spellings
// are accepted for compatibility with files written by other tooling.
type serviceAccountFile struct {
	ClientID  string `json:"client_id"`
	Token     string `json:"token"`
	APIKey    string `json:"api_key"`
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	CreatedAt string `json:"created_at"`

	ClientIDAlt string `json:"clientId"`
	APIKeyAlt   string `json:"apiKey"`
}

// clientID returns the client identifier, preferring snake_case.
func (f *serviceAccountFile) clientID() string {
	if f.ClientID != "" {
		return f.ClientID
	}
	return f.ClientIDAlt
}

// bearer returns the value presented to the key endpoint, preferring
// token over api_key.
func (f *serviceAccountFile) bearer() string {
	if f.Token != "" {
		return f.Token
	}
	if f.APIKey != "" {
		return f.APIKey
	}
	return f.APIKeyAlt
}

// FileSource resolves keys using an offline service-account file. The file
// supplies a bearer credential and client identifier which are presented to
// a remote key endpoint; the endpoint responds with a JSON object mapping
// service names to API keys.
//
// Each resolution call is single-shot: one file read, one HTTP request, no
// retry and no caching. A 401 from the key endpoint is reported as a miss
// like any other HTTP error; there is no token state to invalidate.
type FileSource struct {
	// Path is the location of the service-account JSON file.
	Path string

	// Endpoint is the key-service URL queried with the file's credentials.
	Endpoint string

	// HTTPClient is optional; defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

func (s *FileSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return defaultHTTPClient
}

// ID implements Source.
func (*FileSource) ID() string { return "service-account" }

// Available reports whether a path and endpoint are configured and the
// file exists. No network I/O.
func (s *FileSource) Available() bool {
	if s.Path == "" || s.Endpoint == "" {
		return false
	}
	info, err := os.Stat(s.Path)
	return err == nil && !info.IsDir()
}

// Key loads the service-account file and queries the key endpoint.
func (s *FileSource) Key(ctx context.Context, service string) (string, error) {
	sa, err := s.load()
	if err != nil {
		return "", sourceMiss(s.ID(), ReasonBadFile, err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+sa.bearer())
	header.Set("X-Service-Account", sa.clientID())

	m, status, err := fetchKeyMap(ctx, s.httpClient(), s.Endpoint, header)
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

// load parses and validates the service-account file, failing closed on
// missing required fields or unparsable content.
func (s *FileSource) load() (*serviceAccountFile, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading service account file: %w", err)
	}

	var sa serviceAccountFile
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("parsing service account file: %w", err)
	}

	if sa.clientID() == "" {
		return nil, fmt.Errorf("service account file %s missing client_id", s.Path)
	}
	if sa.bearer() == "" {
		return nil, fmt.Errorf("service account file %s has neither token nor api_key", s.Path)
	}
	return &sa, nil
}
