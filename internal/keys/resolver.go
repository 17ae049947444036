package keys

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsmith/llmkeys/internal/config"
	"github.com/docsmith/llmkeys/internal/log"
)

// Resolver queries credential sources in fixed precedence order and
// returns the first credential found. The source list is set at
// construction; its order is the precedence, highest first.
//
// The resolver holds no per-call mutable state of its own and is safe for
// concurrent use; the OIDC source guards the only shared state.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over sources, highest precedence first.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// FromConfig builds a resolver with the default source ordering:
// remote key service, AWS Secrets Manager, service-account file, OIDC,
// OS keyring, environment variables. Sources without configuration are
// constructed anyway and report unavailable; the closed set of variants
// is fixed here.
func FromConfig(cfg *config.Config) *Resolver {
	httpClient := cfg.HTTPClient()
	return NewResolver(
		&RemoteSource{
			BaseURL:    cfg.Remote.Endpoint,
			APIKey:     cfg.Remote.APIKey,
			HTTPClient: httpClient,
		},
		&SecretsManagerSource{
			SecretID: cfg.AWS.SecretID,
			Region:   cfg.AWS.Region,
		},
		&FileSource{
			Path:       cfg.ServiceAccount.Path,
			Endpoint:   cfg.ServiceAccount.Endpoint,
			HTTPClient: httpClient,
		},
		&OIDCSource{
			TokenEndpoint: cfg.OIDC.TokenEndpoint,
			ClientID:      cfg.OIDC.ClientID,
			ClientSecret:  cfg.OIDC.ClientSecret,
			KeyEndpoint:   cfg.OIDC.KeyEndpoint,
			Scopes:        cfg.OIDC.Scopes(),
			HTTPClient:    httpClient,
		},
		&KeyringSource{
			Service: cfg.Keyring.Service,
		},
		NewEnvSource(),
	)
}

// Default loads the global configuration and builds a resolver from it.
func Default() (*Resolver, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return FromConfig(cfg), nil
}

// Attempt records one source consulted during a failed resolution.
type Attempt struct {
	Source string
	Reason Reason
}

// ResolutionFailure is returned when every source has been exhausted. It
// lists which sources were tried and why each yielded nothing, without
// any secret material.
type ResolutionFailure struct {
	Service  string
	Attempts []Attempt
}

func (f *ResolutionFailure) Error() string {
	if f.allUnconfigured() {
		hint := "set a provider API key environment variable"
		if envVar, ok := envVarByService[normalizeService(f.Service)]; ok {
			hint = "set " + envVar
		}
		return fmt.Sprintf("no credential for %q: no credential sources are configured "+
			"(%s or configure a key service)", f.Service, hint)
	}

	parts := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Source, a.Reason))
	}
	return fmt.Sprintf("no credential for %q: tried %s", f.Service, strings.Join(parts, ", "))
}

// Is makes errors.Is(err, ErrNoCredential) true for resolution failures.
func (*ResolutionFailure) Is(target error) bool { return target == ErrNoCredential }

func (f *ResolutionFailure) allUnconfigured() bool {
	for _, a := range f.Attempts {
		if a.Reason != ReasonUnconfigured {
			return false
		}
	}
	return true
}

// Resolve returns the credential for service from the highest-precedence
// source that has one. Sources reporting unavailable are skipped without
// I/O; the first hit short-circuits the rest. When no source produces a
// credential the returned error is a *ResolutionFailure.
func (r *Resolver) Resolve(ctx context.Context, service string) (string, error) {
	attempts := make([]Attempt, 0, len(r.sources))

	for _, src := range r.sources {
		if !src.Available() {
			attempts = append(attempts, Attempt{Source: src.ID(), Reason: ReasonUnconfigured})
			continue
		}

		key, err := src.Key(ctx, service)
		if err == nil && key != "" {
			log.Debug("credential resolved", "service", service, "source", src.ID())
			return key, nil
		}
		attempts = append(attempts, Attempt{Source: src.ID(), Reason: reasonOf(err)})
	}

	log.Debug("no credential found", "service", service)
	return "", &ResolutionFailure{Service: service, Attempts: attempts}
}

// HasAnyCredential reports whether at least one source is available. It is
// a cheap preflight check and performs no network I/O; an available source
// may still fail to produce a credential at resolution time.
func (r *Resolver) HasAnyCredential() bool {
	for _, src := range r.sources {
		if src.Available() {
			return true
		}
	}
	return false
}

// AvailableSources returns the identifiers of available sources in
// precedence order, for diagnostics.
func (r *Resolver) AvailableSources() []string {
	var ids []string
	for _, src := range r.sources {
		if src.Available() {
			ids = append(ids, src.ID())
		}
	}
	return ids
}

// Sources returns all source identifiers in precedence order, available
// or not.
func (r *Resolver) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// AvailableServices returns the services for which resolution currently
// succeeds. Unlike HasAnyCredential this performs real lookups, one per
// service, and is intended for diagnostics only.
func (r *Resolver) AvailableServices(ctx context.Context) []string {
	var out []string
	for _, service := range Services() {
		if _, err := r.Resolve(ctx, service); err == nil {
			out = append(out, service)
		}
	}
	return out
}
