// Package errors defines the error taxonomy shared across the service.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderErrorKind classifies a single upstream provider failure.
type ProviderErrorKind int

const (
	ProviderErrorUnknown ProviderErrorKind = iota
	ProviderErrorTimeout
	ProviderErrorNetwork
	ProviderErrorInvalidResponse
	ProviderErrorAuth
)

// String returns the string representation of the failure kind
func (k ProviderErrorKind) String() string {
	switch k {
	case ProviderErrorTimeout:
		return "TIMEOUT"
	case ProviderErrorNetwork:
		return "NETWORK_FAILURE"
	case ProviderErrorInvalidResponse:
		return "INVALID_RESPONSE"
	case ProviderErrorAuth:
		return "AUTH_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// ProviderError is the only error shape a provider client may return.
// Raw transport errors never escape a client; they are wrapped here.
type ProviderError struct {
	Kind     ProviderErrorKind
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Provider, e.Kind.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind.String(), e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func NewProviderTimeoutError(provider, message string, cause error) *ProviderError {
	return &ProviderError{Kind: ProviderErrorTimeout, Provider: provider, Message: message, Cause: cause}
}

func NewProviderNetworkError(provider, message string, cause error) *ProviderError {
	return &ProviderError{Kind: ProviderErrorNetwork, Provider: provider, Message: message, Cause: cause}
}

func NewProviderInvalidResponseError(provider, message string, cause error) *ProviderError {
	return &ProviderError{Kind: ProviderErrorInvalidResponse, Provider: provider, Message: message, Cause: cause}
}

func NewProviderAuthError(provider, message string) *ProviderError {
	return &ProviderError{Kind: ProviderErrorAuth, Provider: provider, Message: message}
}

// ProviderAttempt records one provider's failure inside a failover pass.
type ProviderAttempt struct {
	Provider string
	Reason   string
}

// AllProvidersFailedError aggregates every attempted provider and its
// failure reason. It surfaces to callers only when no provider succeeds
// and no cached entry can be served.
type AllProvidersFailedError struct {
	Attempts []ProviderAttempt
}

func (e *AllProvidersFailedError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %s", a.Provider, a.Reason))
	}
	return fmt.Sprintf("all weather providers failed: %s", strings.Join(reasons, "; "))
}

func NewAllProvidersFailedError(attempts []ProviderAttempt) *AllProvidersFailedError {
	return &AllProvidersFailedError{Attempts: attempts}
}

// UnknownProviderError reports a switch request naming a provider that
// is not configured. A user error, not a runtime fault.
type UnknownProviderError struct {
	Provider  string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q (available: %s)", e.Provider, strings.Join(e.Available, ", "))
}

func NewUnknownProviderError(provider string, available []string) *UnknownProviderError {
	return &UnknownProviderError{Provider: provider, Available: available}
}

// ValidationError reports malformed caller input at the API boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// ConfigurationError reports invalid environment configuration.
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{Message: message, Cause: cause}
}

// Helper functions for error type checking

func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

func ProviderErrorKindOf(err error) (ProviderErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return ProviderErrorUnknown, false
}

func IsAllProvidersFailed(err error) bool {
	var ae *AllProvidersFailedError
	return errors.As(err, &ae)
}

func IsUnknownProvider(err error) bool {
	var ue *UnknownProviderError
	return errors.As(err, &ue)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
