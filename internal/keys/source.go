// Package keys resolves API credentials for named LLM services from an
// ordered set of authentication sources.
package keys

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docsmith/llmkeys/internal/log"
)

// ErrNoCredential is returned when no source can produce a credential.
// Both SourceError and ResolutionFailure match it with errors.Is.
var ErrNoCredential = errors.New("no credential available")

// Reason classifies why a source did not produce a credential.
type Reason string

const (
	// ReasonUnconfigured means the source has no usable configuration.
	// This is a skip, not a failure.
	ReasonUnconfigured Reason = "unconfigured"

	// ReasonNoMatch means the source is configured and reachable but has
	// nothing for the requested service.
	ReasonNoMatch Reason = "no matching key"

	// ReasonTransport covers network, DNS, and timeout failures.
	ReasonTransport Reason = "network error"

	// ReasonProtocol covers non-2xx responses, malformed bodies, and
	// missing expected fields.
	ReasonProtocol Reason = "bad response"

	// ReasonBadFile means the offline credentials file is missing required
	// fields or could not be parsed.
	ReasonBadFile Reason = "invalid credentials file"
)

// Source is one authentication mechanism capable of producing an API
// credential for a named service.
//
// Available reports whether the source has usable configuration. It must
// not perform network I/O; the resolver uses it to skip sources cheaply.
//
// Key attempts to produce a credential. A nil error means a non-empty
// credential was found. Every miss, whether a normal "nothing here" or an
// operational failure, is returned as a *SourceError so the resolver can
// continue to the next source; sources never surface fatal conditions.
type Source interface {
	ID() string
	Available() bool
	Key(ctx context.Context, service string) (string, error)
}

// SourceError records why a single source returned no credential.
type SourceError struct {
	Source string
	Reason Reason
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNoCredential) true for any source miss.
func (e *SourceError) Is(target error) bool { return target == ErrNoCredential }

// sourceMiss logs a source failure and returns it as a SourceError.
// Expected outcomes (unconfigured, no match) log at debug; operational
// failures log at warn. Credential material never reaches the log.
func sourceMiss(source string, reason Reason, err error) error {
	switch reason {
	case ReasonUnconfigured, ReasonNoMatch:
		log.Debug("credential source miss", "source", source, "reason", string(reason))
	default:
		log.Warn("credential source failed", "source", source, "reason", string(reason), "error", err)
	}
	return &SourceError{Source: source, Reason: reason, Err: err}
}

// reasonOf extracts the failure category from a source error.
func reasonOf(err error) Reason {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ReasonProtocol
}

// defaultHTTPTimeout bounds every key/token endpoint call so a stuck remote
// cannot hang resolution indefinitely.
const defaultHTTPTimeout = 10 * time.Second

// defaultHTTPClient is shared by sources whose HTTPClient field is nil.
var defaultHTTPClient = &http.Client{Timeout: defaultHTTPTimeout}

// MaskKey masks a credential for display, showing only the first and last
// four characters.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
