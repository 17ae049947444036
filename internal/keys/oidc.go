package keys

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// tokenSafetyMargin is subtracted from a token's stated expiry so a token
// is never used right at the boundary of server-side invalidation.
const tokenSafetyMargin = 30 * time.Second

// cachedToken is the OIDC source's only mutable state. It lives for the
// process at most and is never written to disk.
type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

func (t cachedToken) valid(now time.Time) bool {
	return t.accessToken != "" && now.Before(t.expiresAt)
}

// OIDCSource obtains an access token via the OAuth2 client-credentials
// grant and presents it to a key endpoint that returns a JSON object
// mapping service names to API keys.
//
// The access token is cached until its expiry (less a safety margin) and
// renewed lazily and synchronously on the call that observes expiry; there
// is no background refresh. Concurrent callers racing on an expired token
// share a single in-flight acquisition.
type OIDCSource struct {
	// TokenEndpoint, ClientID, ClientSecret, and KeyEndpoint are all
	// required for the source to be available.
	TokenEndpoint string
	ClientID      string
	ClientSecret  string
	KeyEndpoint   string

	// Scopes is optional and passed through to the token request.
	Scopes []string

	// HTTPClient is optional; defaults to a client with a 10s timeout.
	// Used for both the token and key endpoints.
	HTTPClient *http.Client

	// now is the clock for expiry checks. Overridden in tests.
	now func() time.Time

	mu    sync.Mutex
	token cachedToken
	group singleflight.Group
}

func (s *OIDCSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return defaultHTTPClient
}

func (s *OIDCSource) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// ID implements Source.
func (*OIDCSource) ID() string { return "oidc" }

// Available reports whether the full client-credentials configuration is
// present. No network I/O.
func (s *OIDCSource) Available() bool {
	return s.TokenEndpoint != "" && s.ClientID != "" && s.ClientSecret != "" && s.KeyEndpoint != ""
}

// Key acquires (or reuses) an access token and queries the key endpoint.
// A 401 or 403 from the key endpoint discards the cached token so the next
// call re-authenticates; the current call reports a miss without retrying,
// which keeps a misbehaving endpoint from causing request loops.
func (s *OIDCSource) Key(ctx context.Context, service string) (string, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	m, status, err := fetchKeyMap(ctx, s.httpClient(), s.KeyEndpoint, header)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			s.invalidate(token)
		}
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

// accessToken returns the cached token if still valid, otherwise acquires
// a fresh one. Acquisition is deduplicated: concurrent callers observing an
// expired token wait on one token-endpoint request rather than issuing
// their own.
func (s *OIDCSource) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token.valid(s.timeNow()) {
		token := s.token.accessToken
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("token", func() (any, error) {
		// A caller queued behind a completed acquisition reuses its result.
		s.mu.Lock()
		if s.token.valid(s.timeNow()) {
			token := s.token.accessToken
			s.mu.Unlock()
			return token, nil
		}
		s.mu.Unlock()

		fresh, err := s.fetchToken(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.token = fresh
		s.mu.Unlock()
		return fresh.accessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fetchToken performs the client-credentials grant.
func (s *OIDCSource) fetchToken(ctx context.Context) (cachedToken, error) {
	cfg := &clientcredentials.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		TokenURL:     s.TokenEndpoint,
		Scopes:       s.Scopes,
		// The key-service contract sends client credentials in the form
		// body. Pinning the style also stops oauth2 from probing the
		// endpoint twice on failure.
		AuthStyle: oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient())
	token, err := cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			// Report the status only; the response body is not ours to log.
			return cachedToken{}, sourceMiss(s.ID(), ReasonProtocol,
				fmt.Errorf("token endpoint returned status %d", retrieveErr.Response.StatusCode))
		}
		return cachedToken{}, sourceMiss(s.ID(), ReasonTransport, err)
	}

	if token.AccessToken == "" {
		return cachedToken{}, sourceMiss(s.ID(), ReasonProtocol, errors.New("token response missing access_token"))
	}
	if token.Expiry.IsZero() {
		return cachedToken{}, sourceMiss(s.ID(), ReasonProtocol, errors.New("token response missing expires_in"))
	}

	return cachedToken{
		accessToken: token.AccessToken,
		expiresAt:   token.Expiry.Add(-tokenSafetyMargin),
	}, nil
}

// invalidate discards the cached token if it is still the one that was
// rejected. A token replaced by a concurrent renewal is left alone.
func (s *OIDCSource) invalidate(rejected string) {
	s.mu.Lock()
	if s.token.accessToken == rejected {
		s.token = cachedToken{}
	}
	s.mu.Unlock()
}
