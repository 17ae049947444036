package keys

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringSource(t *testing.T) {
	keyring.MockInit()

	if err := keyring.Set("llmkeys-test", "openai", "sk-ring"); err != nil {
		t.Fatalf("seeding mock keyring: %v", err)
	}

	t.Run("unconfigured without service name", func(t *testing.T) {
		if (&KeyringSource{}).Available() {
			t.Error("source without keyring service should not be available")
		}
	})

	t.Run("returns stored entry", func(t *testing.T) {
		src := &KeyringSource{Service: "llmkeys-test"}
		key, err := src.Key(context.Background(), "openai")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ring" {
			t.Errorf("Key() = %q, want %q", key, "sk-ring")
		}
	})

	t.Run("service names are normalized", func(t *testing.T) {
		src := &KeyringSource{Service: "llmkeys-test"}
		key, err := src.Key(context.Background(), "OpenAI")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ring" {
			t.Errorf("Key() = %q, want %q", key, "sk-ring")
		}
	})

	t.Run("missing entry is a no-match miss", func(t *testing.T) {
		src := &KeyringSource{Service: "llmkeys-test"}
		_, err := src.Key(context.Background(), "anthropic")
		if !errors.Is(err, ErrNoCredential) {
			t.Fatalf("expected ErrNoCredential, got %v", err)
		}
		if got := reasonOf(err); got != ReasonNoMatch {
			t.Errorf("reason = %q, want %q", got, ReasonNoMatch)
		}
	})
}
