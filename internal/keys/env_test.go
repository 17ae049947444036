package keys

import (
	"context"
	"errors"
	"testing"
)

// fakeEnviron returns an Environ func backed by a map.
func fakeEnviron(vars map[string]string) func(string) string {
	return func(name string) string {
		return vars[name]
	}
}

func TestEnvSource_Available(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want bool
	}{
		{"no variables set", map[string]string{}, false},
		{"one variable set", map[string]string{"OPENAI_API_KEY": "sk-test"}, true},
		{"unrelated variable set", map[string]string{"HOME": "/home/u"}, false},
		{"all variables set", map[string]string{
			"OPENAI_API_KEY":    "a",
			"ANTHROPIC_API_KEY": "b",
			"GEMINI_API_KEY":    "c",
			"DEEPSEEK_API_KEY":  "d",
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &EnvSource{Environ: fakeEnviron(tt.vars)}
			if got := src.Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvSource_Key(t *testing.T) {
	src := &EnvSource{Environ: fakeEnviron(map[string]string{
		"OPENAI_API_KEY": "sk-test",
	})}

	t.Run("mapped variable set", func(t *testing.T) {
		key, err := src.Key(context.Background(), "openai")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-test" {
			t.Errorf("Key() = %q, want %q", key, "sk-test")
		}
	})

	t.Run("service names are case-insensitive", func(t *testing.T) {
		key, err := src.Key(context.Background(), "OpenAI")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-test" {
			t.Errorf("Key() = %q, want %q", key, "sk-test")
		}
	})

	t.Run("mapped variable unset returns miss without panic", func(t *testing.T) {
		_, err := src.Key(context.Background(), "anthropic")
		if !errors.Is(err, ErrNoCredential) {
			t.Fatalf("expected ErrNoCredential, got %v", err)
		}
		if got := reasonOf(err); got != ReasonNoMatch {
			t.Errorf("reason = %q, want %q", got, ReasonNoMatch)
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := src.Key(context.Background(), "no-such-llm")
		if !errors.Is(err, ErrNoCredential) {
			t.Fatalf("expected ErrNoCredential, got %v", err)
		}
	})
}

func TestEnvSource_ReadsProcessEnvByDefault(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gm-proc")

	src := NewEnvSource()
	key, err := src.Key(context.Background(), "gemini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "gm-proc" {
		t.Errorf("Key() = %q, want %q", key, "gm-proc")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"sk-abcdefghijklmnop", "sk-a...mnop"},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
