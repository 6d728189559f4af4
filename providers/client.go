// Package providers contains the upstream weather API clients and the
// failover manager that arbitrates between them.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"weatherhub.app/models"
	apperrors "weatherhub.app/pkg/errors"
)

// Client is one upstream weather API. Implementations apply a bounded
// timeout per call, translate every upstream failure into a
// *apperrors.ProviderError, and normalize the payload fully; callers
// never see provider-specific shapes.
type Client interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64, timezone string) (*models.NormalizedObservation, error)
}

// Resolver is what the cache layer needs from the failover manager.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64, timezone string) (*models.NormalizedObservation, error)
}

// classifyTransportError wraps a raw HTTP client error with the right kind.
func classifyTransportError(provider string, err error) *apperrors.ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewProviderTimeoutError(provider, "request timed out", err)
	}
	return apperrors.NewProviderNetworkError(provider, "request failed", err)
}

// classifyStatusError maps a non-2xx status to a provider error kind.
func classifyStatusError(provider string, statusCode int) *apperrors.ProviderError {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewProviderAuthError(provider, "invalid or missing API key")
	default:
		return &apperrors.ProviderError{
			Kind:     apperrors.ProviderErrorNetwork,
			Provider: provider,
			Message:  fmt.Sprintf("unexpected status %d %s", statusCode, http.StatusText(statusCode)),
		}
	}
}
