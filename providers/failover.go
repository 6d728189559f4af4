package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"weatherhub.app/metrics"
	"weatherhub.app/models"
	apperrors "weatherhub.app/pkg/errors"
)

// healthState tracks one provider's recent behavior. Kept for
// observability; failover order is fixed, there is no automatic
// cool-down or recovery timer.
type healthState struct {
	consecutiveFailures int
	lastError           string
	lastAttempt         time.Time
}

// ProviderStatus is the externally visible health snapshot of one provider.
type ProviderStatus struct {
	Name                string `json:"name"`
	Active              bool   `json:"active"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

// FailoverManager owns an ordered list of provider clients and tries
// them in priority order starting at the preferred one. Every Resolve
// retries from the preferred provider, so one that recovers after an
// outage is picked up again without intervention; only SwitchActive
// moves the preferred index, and a switch takes effect on the next
// Resolve call, never retroactively. The active index records which
// provider last served a result, for observability.
type FailoverManager struct {
	mu        sync.Mutex
	clients   []Client
	health    []*healthState
	preferred int
	active    int
}

// NewFailoverManager creates a manager over the given clients. The
// argument order is the fallback priority; the first client starts active.
func NewFailoverManager(clients ...Client) (*FailoverManager, error) {
	if len(clients) == 0 {
		return nil, apperrors.NewConfigurationError("no weather providers configured", nil)
	}

	health := make([]*healthState, len(clients))
	for i := range health {
		health[i] = &healthState{}
	}

	return &FailoverManager{
		clients: clients,
		health:  health,
	}, nil
}

// Resolve tries providers in priority order starting at the preferred
// index and returns the first normalized success. The list is not
// wrapped; once exhausted the aggregate error names every attempted
// provider and its reason.
func (fm *FailoverManager) Resolve(ctx context.Context, lat, lon float64, timezone string) (*models.NormalizedObservation, error) {
	fm.mu.Lock()
	start := fm.preferred
	fm.mu.Unlock()

	var attempts []apperrors.ProviderAttempt
	for i := start; i < len(fm.clients); i++ {
		client := fm.clients[i]

		obs, err := client.Fetch(ctx, lat, lon, timezone)
		if err != nil {
			fm.recordFailure(i, err)
			metrics.ProviderAttempts.WithLabelValues(client.Name(), "failure").Inc()
			if kind, ok := apperrors.ProviderErrorKindOf(err); ok {
				metrics.ProviderFailures.WithLabelValues(client.Name(), kind.String()).Inc()
			}
			slog.Warn("provider failed", "provider", client.Name(), "lat", lat, "lon", lon, "error", err)
			attempts = append(attempts, apperrors.ProviderAttempt{Provider: client.Name(), Reason: err.Error()})
			continue
		}

		fm.recordSuccess(i)
		metrics.ProviderAttempts.WithLabelValues(client.Name(), "success").Inc()
		return obs, nil
	}

	return nil, apperrors.NewAllProvidersFailedError(attempts)
}

func (fm *FailoverManager) recordFailure(index int, err error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	h := fm.health[index]
	h.consecutiveFailures++
	h.lastError = err.Error()
	h.lastAttempt = time.Now()
}

func (fm *FailoverManager) recordSuccess(index int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	h := fm.health[index]
	h.consecutiveFailures = 0
	h.lastError = ""
	h.lastAttempt = time.Now()
	fm.active = index
}

// SwitchActive makes the named provider first-tried on the next
// Resolve. Health counters of other providers are untouched. Safe to
// call concurrently with in-flight Resolve calls.
func (fm *FailoverManager) SwitchActive(name string) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	for i, client := range fm.clients {
		if client.Name() == name {
			fm.preferred = i
			fm.active = i
			slog.Info("active provider switched", "provider", name)
			return nil
		}
	}

	return apperrors.NewUnknownProviderError(name, fm.namesLocked())
}

// Active returns the name of the provider that most recently served a
// result (the preferred one until anything has been served).
func (fm *FailoverManager) Active() string {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.clients[fm.active].Name()
}

// Names returns the configured provider names in priority order.
func (fm *FailoverManager) Names() []string {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.namesLocked()
}

func (fm *FailoverManager) namesLocked() []string {
	names := make([]string, len(fm.clients))
	for i, client := range fm.clients {
		names[i] = client.Name()
	}
	return names
}

// Info returns a health snapshot for every configured provider.
func (fm *FailoverManager) Info() []ProviderStatus {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	statuses := make([]ProviderStatus, len(fm.clients))
	for i, client := range fm.clients {
		statuses[i] = ProviderStatus{
			Name:                client.Name(),
			Active:              i == fm.active,
			ConsecutiveFailures: fm.health[i].consecutiveFailures,
			LastError:           fm.health[i].lastError,
		}
	}
	return statuses
}

// FailureCount returns a provider's consecutive failure count, for tests
// and diagnostics.
func (fm *FailoverManager) FailureCount(name string) (int, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	for i, client := range fm.clients {
		if client.Name() == name {
			return fm.health[i].consecutiveFailures, nil
		}
	}
	return 0, fmt.Errorf("no such provider: %s", name)
}
