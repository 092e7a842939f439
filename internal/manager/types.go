package manager

import (
	"errors"
	"fmt"
	"strings"
)

// App mirrors an application entry returned by /v1/apps.
type App struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Version         string `json:"version,omitempty"`
	Tagline         string `json:"tagline,omitempty"`
	Category        string `json:"category,omitempty"`
	UpdateAvailable bool   `json:"updateAvailable"`
}

// DisplayName returns the name shown in lists, falling back to the id.
func (a App) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.ID
}

// TransportError is the single failure kind surfaced by the management API
// client. Network faults, timeouts, undecodable bodies and non-2xx responses
// all collapse into it.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
