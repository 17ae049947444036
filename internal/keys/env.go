package keys

import (
	"context"
	"os"
	"strings"
)

// envVarByService maps each supported service to the environment variable
// that holds its API key. The table is fixed; new services are added here.
var envVarByService = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
}

// Services returns the names of all supported LLM services.
func Services() []string {
	return []string{"openai", "anthropic", "gemini", "deepseek"}
}

// normalizeService lowercases a service name for table and key-map lookups.
func normalizeService(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

// EnvSource reads API keys from fixed per-service environment variables.
// This is the lowest-precedence source and the legacy way of supplying keys.
type EnvSource struct {
	// Environ looks up one variable from an environment snapshot.
	// Optional; defaults to os.Getenv. Injected in tests so the resolver
	// never depends on ambient process state.
	Environ func(string) string
}

// NewEnvSource returns an EnvSource reading from the process environment.
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

func (s *EnvSource) environ(name string) string {
	if s.Environ != nil {
		return s.Environ(name)
	}
	return os.Getenv(name)
}

// ID implements Source.
func (*EnvSource) ID() string { return "env" }

// Available reports whether at least one mapped variable is set.
func (s *EnvSource) Available() bool {
	for _, envVar := range envVarByService {
		if s.environ(envVar) != "" {
			return true
		}
	}
	return false
}

// Key reads the mapped variable for service. No transformation, no caching;
// the environment is assumed stable for the process lifetime.
func (s *EnvSource) Key(_ context.Context, service string) (string, error) {
	envVar, ok := envVarByService[normalizeService(service)]
	if !ok {
		return "", sourceMiss(s.ID(), ReasonNoMatch, nil)
	}
	if val := s.environ(envVar); val != "" {
		return val, nil
	}
	return "", sourceMiss(s.ID(), ReasonNoMatch, nil)
}
