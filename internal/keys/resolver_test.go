package keys

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsmith/llmkeys/internal/config"
)

// fakeSource is a scriptable Source that counts Key calls.
type fakeSource struct {
	id        string
	available bool
	key       string
	reason    Reason
	calls     int
}

func (f *fakeSource) ID() string      { return f.id }
func (f *fakeSource) Available() bool { return f.available }

func (f *fakeSource) Key(context.Context, string) (string, error) {
	f.calls++
	if f.key != "" {
		return f.key, nil
	}
	return "", &SourceError{Source: f.id, Reason: f.reason}
}

func TestResolver_Precedence(t *testing.T) {
	t.Run("first hit short-circuits lower sources", func(t *testing.T) {
		high := &fakeSource{id: "high", available: true, key: "sk-high"}
		low := &fakeSource{id: "low", available: true, key: "sk-low"}

		r := NewResolver(high, low)
		key, err := r.Resolve(context.Background(), "openai")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-high" {
			t.Errorf("Resolve() = %q, want %q", key, "sk-high")
		}
		if low.calls != 0 {
			t.Errorf("lower-precedence source queried %d times, want 0", low.calls)
		}
	})

	t.Run("unavailable source skipped without a query", func(t *testing.T) {
		off := &fakeSource{id: "off", available: false, key: "sk-off"}
		on := &fakeSource{id: "on", available: true, key: "sk-on"}

		r := NewResolver(off, on)
		key, err := r.Resolve(context.Background(), "openai")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-on" {
			t.Errorf("Resolve() = %q, want %q", key, "sk-on")
		}
		if off.calls != 0 {
			t.Errorf("unavailable source queried %d times, want 0", off.calls)
		}
	})

	t.Run("a broken source never blocks a working one", func(t *testing.T) {
		broken := &fakeSource{id: "broken", available: true, reason: ReasonTransport}
		working := &fakeSource{id: "working", available: true, key: "sk-ok"}

		r := NewResolver(broken, working)
		key, err := r.Resolve(context.Background(), "openai")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ok" {
			t.Errorf("Resolve() = %q, want %q", key, "sk-ok")
		}
	})
}

func TestResolver_ResolutionFailure(t *testing.T) {
	t.Run("records every attempt in order", func(t *testing.T) {
		r := NewResolver(
			&fakeSource{id: "a", available: false},
			&fakeSource{id: "b", available: true, reason: ReasonTransport},
			&fakeSource{id: "c", available: true, reason: ReasonNoMatch},
		)

		_, err := r.Resolve(context.Background(), "openai")
		if !errors.Is(err, ErrNoCredential) {
			t.Fatalf("expected ErrNoCredential, got %v", err)
		}

		var failure *ResolutionFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected *ResolutionFailure, got %T", err)
		}

		want := []Attempt{
			{Source: "a", Reason: ReasonUnconfigured},
			{Source: "b", Reason: ReasonTransport},
			{Source: "c", Reason: ReasonNoMatch},
		}
		assert.Equal(t, want, failure.Attempts)
	})

	t.Run("nothing-configured message", func(t *testing.T) {
		r := NewResolver(&fakeSource{id: "a"}, &fakeSource{id: "b"})

		_, err := r.Resolve(context.Background(), "openai")
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "no credential sources are configured") {
			t.Errorf("error %q should say nothing is configured", err)
		}
		if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
			t.Errorf("error %q should name the provider env var", err)
		}
	})

	t.Run("all-attempts-failed message names sources and reasons", func(t *testing.T) {
		r := NewResolver(&fakeSource{id: "oidc", available: true, reason: ReasonTransport})

		_, err := r.Resolve(context.Background(), "openai")
		if err == nil {
			t.Fatal("expected an error")
		}
		msg := err.Error()
		if !strings.Contains(msg, "oidc") || !strings.Contains(msg, string(ReasonTransport)) {
			t.Errorf("error %q should name the source and reason", msg)
		}
	})
}

func TestResolver_Preflight(t *testing.T) {
	r := NewResolver(
		&fakeSource{id: "a", available: false},
		&fakeSource{id: "b", available: true, reason: ReasonNoMatch},
		&fakeSource{id: "c", available: true, key: "sk"},
	)

	if !r.HasAnyCredential() {
		t.Error("HasAnyCredential() = false with available sources")
	}
	assert.Equal(t, []string{"b", "c"}, r.AvailableSources())

	empty := NewResolver(&fakeSource{id: "a"})
	if empty.HasAnyCredential() {
		t.Error("HasAnyCredential() = true with no available source")
	}
}

func TestResolver_AvailableServices(t *testing.T) {
	env := &EnvSource{Environ: fakeEnviron(map[string]string{
		"OPENAI_API_KEY":   "sk-a",
		"DEEPSEEK_API_KEY": "sk-d",
	})}

	r := NewResolver(env)
	assert.Equal(t, []string{"openai", "deepseek"}, r.AvailableServices(context.Background()))
}

func TestFromConfig_SourceOrder(t *testing.T) {
	cfg := config.Default()
	r := FromConfig(cfg)

	var ids []string
	for _, src := range r.Sources() {
		ids = append(ids, src.ID())
	}
	require.Equal(t, []string{
		"remote",
		"aws-secrets-manager",
		"service-account",
		"oidc",
		"keyring",
		"env",
	}, ids)
}

// Scenario: only an environment variable is set. The env source answers
// for its service; every other service fails with a full attempt listing.
func TestResolver_ScenarioEnvOnly(t *testing.T) {
	env := &EnvSource{Environ: fakeEnviron(map[string]string{"OPENAI_API_KEY": "sk-test"})}
	r := NewResolver(
		&RemoteSource{},
		&FileSource{},
		&OIDCSource{},
		env,
	)

	key, err := r.Resolve(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	_, err = r.Resolve(context.Background(), "anthropic")
	var failure *ResolutionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, []Attempt{
		{Source: "remote", Reason: ReasonUnconfigured},
		{Source: "service-account", Reason: ReasonUnconfigured},
		{Source: "oidc", Reason: ReasonUnconfigured},
		{Source: "env", Reason: ReasonNoMatch},
	}, failure.Attempts)
}

// Scenario: OIDC is configured. The first resolve acquires one token; an
// immediate second resolve reuses it with zero new token requests.
func TestResolver_ScenarioOIDC(t *testing.T) {
	f := newOIDCFixture(t, nil)
	r := NewResolver(f.src, NewEnvSource())

	key, err := r.Resolve(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-oidc", key)
	require.EqualValues(t, 1, f.tokenCalls.Load())

	key, err = r.Resolve(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-oidc", key)
	assert.EqualValues(t, 1, f.tokenCalls.Load(), "second resolve must not re-acquire a token")
}

// Scenario: a remote key service and an environment variable both hold a
// key for the same service. The remote service wins.
func TestResolver_ScenarioRemoteBeatsEnv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"openai": "sk-remote"})
	}))
	defer server.Close()

	r := NewResolver(
		&RemoteSource{BaseURL: server.URL},
		&EnvSource{Environ: fakeEnviron(map[string]string{"OPENAI_API_KEY": "sk-env"})},
	)

	key, err := r.Resolve(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-remote", key)
}
