package providers

import (
	"errors"
	"fmt"
	"strings"
)

// Transport-level failures the orchestrator needs to tell apart. Each keeps
// the turn from completing; none is retried automatically.
var (
	// ErrConnection marks network/DNS/timeout failures reaching the backend.
	ErrConnection = errors.New("provider connection error")
	// ErrRateLimit marks an HTTP 429 from the backend.
	ErrRateLimit = errors.New("provider rate limit exceeded")
)

// StatusError is a non-200, non-429 HTTP response from a backend.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Code, e.Body)
}

// connErr wraps a transport failure so errors.Is(err, ErrConnection) holds.
func connErr(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrConnection, err)
}

// rateErr wraps a 429 so errors.Is(err, ErrRateLimit) holds.
func rateErr(provider string, body []byte) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrRateLimit, trimBody(body))
}

// statusErr builds a *StatusError with a trimmed body.
func statusErr(provider string, code int, body []byte) error {
	return &StatusError{Provider: provider, Code: code, Body: trimBody(body)}
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
