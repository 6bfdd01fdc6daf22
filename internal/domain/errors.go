package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Provider failure kinds. A *ProviderError matches exactly one of these
// with errors.Is.
var (
	// ErrNotConfigured means the provider lacks credentials. No network call
	// was attempted.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrUpstream covers transport failures, timeouts, non-2xx responses, and
	// malformed payloads.
	ErrUpstream = errors.New("upstream provider error")

	// ErrNoRoute means the provider understood the request but found no route.
	ErrNoRoute = errors.New("no route found")
)

// ProviderError is returned by DistanceProvider.Calculate.
type ProviderError struct {
	Provider ProviderID
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewConfigurationError reports missing credentials for provider.
func NewConfigurationError(provider ProviderID, detail string) error {
	return &ProviderError{Provider: provider, Kind: ErrNotConfigured, Err: errors.New(detail)}
}

// NewUpstreamError wraps a transport or payload failure.
func NewUpstreamError(provider ProviderID, err error) error {
	return &ProviderError{Provider: provider, Kind: ErrUpstream, Err: err}
}

// NewNotFoundError reports that provider could not route the lane.
func NewNotFoundError(provider ProviderID, detail string) error {
	var err error
	if detail != "" {
		err = errors.New(detail)
	}
	return &ProviderError{Provider: provider, Kind: ErrNoRoute, Err: err}
}

// ProviderFailure records one failed attempt in a resolution chain.
type ProviderFailure struct {
	Provider ProviderID
	Err      error
}

// AllProvidersFailedError is the only error a resolution surfaces. Attempts
// are in chain order and list only providers that were actually tried.
// Interrupted holds the context error when the walk stopped before the end
// of the chain.
type AllProvidersFailedError struct {
	Attempts    []ProviderFailure
	Interrupted error
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts)+1)
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	if e.Interrupted != nil {
		parts = append(parts, fmt.Sprintf("interrupted: %v", e.Interrupted))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	if e.Interrupted != nil {
		errs = append(errs, e.Interrupted)
	}
	return errs
}
