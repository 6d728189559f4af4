// Package session implements the client connection lifecycle: a push
// connection with bounded reconnection attempts and a permanent
// fallback to interval polling once those attempts are exhausted.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"weatherhub.app/config"
	"weatherhub.app/distributor"
	"weatherhub.app/models"
)

// State is the session lifecycle state.
type State string

const (
	StateConnecting    State = "connecting"
	StateConnectedPush State = "connected_push"
	StateReconnecting  State = "reconnecting"
	StatePolling       State = "polling"
	StateClosed        State = "closed"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Clock abstracts time so reconnection backoff and poll intervals can
// be driven synthetically in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Conn is an established push connection.
type Conn interface {
	Subscribe(loc distributor.Location) error
	ReadEvent() (distributor.Event, error)
	Close() error
}

// Transport dials push connections.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Fetcher performs one-shot observation fetches while polling.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64, displayName, timezone string) (*models.NormalizedObservation, error)
}

// Config carries the session tuning knobs.
type Config struct {
	MaxPushRetries int
	BackoffBase    time.Duration
	PollInterval   time.Duration
}

// ConfigFrom maps the environment-backed session settings.
func ConfigFrom(cfg config.SessionConfig) Config {
	return Config{
		MaxPushRetries: cfg.MaxPushRetries,
		BackoffBase:    cfg.BackoffBase(),
		PollInterval:   cfg.PollInterval(),
	}
}

// Session drives one client's connection. Updates arrive on Events()
// regardless of whether they came over push or from a poll.
type Session struct {
	transport Transport
	fetcher   Fetcher
	clock     Clock
	cfg       Config

	mu       sync.Mutex
	state    State
	retries  int
	location distributor.Location
	conn     Conn

	group  singleflight.Group
	events chan distributor.Event
	done   chan struct{}
	once   sync.Once
}

// New creates a session for the given location. Run must be called to
// start the lifecycle.
func New(transport Transport, fetcher Fetcher, cfg Config, loc distributor.Location) *Session {
	return NewWithClock(transport, fetcher, cfg, loc, realClock{})
}

// NewWithClock creates a session with an injected clock; used by tests.
func NewWithClock(transport Transport, fetcher Fetcher, cfg Config, loc distributor.Location, clock Clock) *Session {
	return &Session{
		transport: transport,
		fetcher:   fetcher,
		clock:     clock,
		cfg:       cfg,
		state:     StateConnecting,
		location:  loc,
		events:    make(chan distributor.Event, 16),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Retries returns the consecutive failed push attempts.
func (s *Session) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// Events is the stream of updates delivered to this session.
func (s *Session) Events() <-chan distributor.Event {
	return s.events
}

// Run drives the session until Close is called or ctx is cancelled.
// Push is attempted first; after MaxPushRetries consecutive failures
// the session degrades to polling and never attempts push again.
func (s *Session) Run(ctx context.Context) {
	for {
		switch s.State() {
		case StateClosed:
			return
		case StateConnecting, StateReconnecting:
			if !s.runPush(ctx) {
				return
			}
		case StatePolling:
			s.runPolling(ctx)
			return
		case StateConnectedPush:
			// Unreachable; runPush owns the connected phase.
			return
		}
	}
}

// runPush attempts one dial-and-read cycle. Returns false when the
// session is done (closed or cancelled), true when the caller should
// re-dispatch on the new state.
func (s *Session) runPush(ctx context.Context) bool {
	conn, err := s.transport.Dial(ctx)
	if err != nil {
		return s.onPushFailure(ctx, err)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		conn.Close()
		return false
	}
	s.conn = conn
	s.state = StateConnectedPush
	s.retries = 0
	loc := s.location
	s.mu.Unlock()

	slog.Info("push connection established", "key", loc.Key)

	// Unblock the read loop when the caller cancels or the session closes.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
			conn.Close()
		case <-watchDone:
		}
	}()

	if err := conn.Subscribe(loc); err != nil {
		conn.Close()
		return s.onPushFailure(ctx, err)
	}

	for {
		event, err := conn.ReadEvent()
		if err != nil {
			conn.Close()
			s.mu.Lock()
			closed := s.state == StateClosed
			s.mu.Unlock()
			if closed {
				return false
			}
			return s.onPushFailure(ctx, err)
		}
		s.deliver(event)
	}
}

// onPushFailure records a failed push attempt and either backs off for
// another try or degrades the session to polling permanently.
func (s *Session) onPushFailure(ctx context.Context, cause error) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	s.conn = nil
	s.retries++
	retries := s.retries
	if retries > s.cfg.MaxPushRetries {
		s.state = StatePolling
		s.mu.Unlock()
		slog.Warn("push retries exhausted, degrading to polling", "retries", retries, "error", cause)
		return true
	}
	s.state = StateReconnecting
	s.mu.Unlock()

	backoff := s.cfg.BackoffBase << (retries - 1)
	slog.Warn("push connection failed, retrying", "attempt", retries, "backoff", backoff, "error", cause)

	select {
	case <-ctx.Done():
		s.Close()
		return false
	case <-s.done:
		return false
	case <-s.clock.After(backoff):
		return true
	}
}

// runPolling fetches on a fixed interval until the session ends. The
// first fetch happens immediately so the degraded session is not blind
// for a full interval.
func (s *Session) runPolling(ctx context.Context) {
	for {
		s.pollOnce(ctx)

		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case <-s.clock.After(s.cfg.PollInterval):
		}
	}
}

func (s *Session) pollOnce(ctx context.Context) {
	s.mu.Lock()
	loc := s.location
	s.mu.Unlock()

	// Concurrent polls for the same location collapse into one fetch.
	v, err, _ := s.group.Do(loc.Key, func() (interface{}, error) {
		return s.fetcher.Fetch(ctx, loc.Lat, loc.Lon, loc.DisplayName, loc.Timezone)
	})
	if err != nil {
		slog.Warn("poll fetch failed", "key", loc.Key, "error", err)
		return
	}

	s.deliver(distributor.Event{
		Type:        distributor.EventWeatherUpdate,
		Observation: v.(*models.NormalizedObservation),
	})
}

func (s *Session) deliver(event distributor.Event) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

// SetLocation switches the session to a new location. Over push the
// old subscription is replaced on the server; while polling the next
// poll simply targets the new coordinates.
func (s *Session) SetLocation(loc distributor.Location) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.location = loc
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		return conn.Subscribe(loc)
	}
	return nil
}

// Close ends the session. Idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()

		close(s.done)
		if conn != nil {
			conn.Close()
		}
	})
}
