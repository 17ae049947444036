package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxKeyResponseBytes caps how much of a key-service response is read.
// A well-formed response is a small JSON object; anything larger is suspect.
const maxKeyResponseBytes = 1 << 20

// fetchKeyMap issues a GET to url and decodes the response as a JSON object
// mapping service names to credential strings. The returned status is the
// HTTP status code, or 0 when the request never completed.
func fetchKeyMap(ctx context.Context, client *http.Client, url string, header http.Header) (map[string]string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling key endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxKeyResponseBytes))
		return nil, resp.StatusCode, fmt.Errorf("key endpoint returned status %d", resp.StatusCode)
	}

	var m map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeyResponseBytes)).Decode(&m); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding key endpoint response: %w", err)
	}
	return m, resp.StatusCode, nil
}

// lookupService finds the credential for a service in a fetched key map.
// Service names are matched case-insensitively, preferring an exact match.
func lookupService(m map[string]string, service string) (string, bool) {
	if v, ok := m[service]; ok && v != "" {
		return v, true
	}
	if v, ok := m[normalizeService(service)]; ok && v != "" {
		return v, true
	}
	return "", false
}
