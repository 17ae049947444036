package keys

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringSource reads API keys from the OS keyring (Keychain on macOS,
// Credential Manager on Windows, libsecret/kwallet on Linux). Each LLM
// service is one keyring entry: the configured Service is the keyring
// service name and the LLM service name is the account.
//
// The source is optional and stays unconfigured unless a keyring service
// name is set (LLMKEYS_KEYRING_SERVICE or the keyring.service config key).
type KeyringSource struct {
	// Service is the keyring service name holding the entries.
	Service string
}

// ID implements Source.
func (*KeyringSource) ID() string { return "keyring" }

// Available reports whether a keyring service name is configured. Backend
// availability is only discovered on lookup; probing the keyring here
// could trigger an unlock prompt, which is I/O the availability check
// must not do.
func (s *KeyringSource) Available() bool {
	return s.Service != ""
}

// Key looks up the entry for service.
func (s *KeyringSource) Key(_ context.Context, service string) (string, error) {
	val, err := keyring.Get(s.Service, normalizeService(service))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", sourceMiss(s.ID(), ReasonNoMatch, nil)
		}
		return "", sourceMiss(s.ID(), ReasonProtocol, err)
	}
	if val == "" {
		return "", sourceMiss(s.ID(), ReasonNoMatch, nil)
	}
	return val, nil
}
