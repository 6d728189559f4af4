// Package distributor implements the fan-out hub that keeps client
// sessions synchronized: per-session subscriptions, push delivery over
// a channel, and pre-populated poll responses for sessions that fell
// back to polling.
package distributor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"weatherhub.app/metrics"
	"weatherhub.app/models"
)

// Transport selects how a subscription receives updates.
type Transport string

const (
	TransportPush Transport = "push"
	TransportPoll Transport = "poll"
)

// Event is one message delivered to a push session.
type Event struct {
	Type        string                        `json:"type"`
	Observation *models.NormalizedObservation `json:"observation,omitempty"`
	Payload     interface{}                   `json:"payload,omitempty"`
}

const (
	EventWeatherUpdate    = "weather_update"
	EventProviderSwitched = "provider_switched"
	EventProviderInfo     = "provider_info"
	EventPong             = "pong"
)

// Location identifies a subscribed place with enough detail for the
// refresh driver to refetch it.
type Location struct {
	Lat         float64
	Lon         float64
	Key         string
	DisplayName string
	Timezone    string
}

// NewLocation derives the cache key from raw coordinates.
func NewLocation(lat, lon float64, displayName, timezone string) Location {
	return Location{
		Lat:         lat,
		Lon:         lon,
		Key:         models.LocationKey(lat, lon),
		DisplayName: displayName,
		Timezone:    timezone,
	}
}

// Subscription represents one session's interest in a location.
type Subscription struct {
	SessionID       string
	LocationKey     string
	Transport       Transport
	LastDeliveredAt time.Time
}

// sessionState holds per-session delivery plumbing. Push sessions own
// a buffered event channel; poll sessions own a one-slot mailbox where
// a newer observation replaces an undelivered older one.
type sessionState struct {
	id        string
	transport Transport
	events    chan Event
	mailbox   *models.NormalizedObservation
}

// eventBuffer sizes the per-session channel; a session that falls this
// far behind starts losing updates rather than blocking publishers.
const eventBuffer = 16

// Peeker returns a live cached observation for immediate delivery to
// new subscribers, when one exists.
type Peeker func(ctx context.Context, key string) (*models.NormalizedObservation, bool)

// Distributor is the fan-out hub. All methods are safe for concurrent use.
type Distributor struct {
	mu        sync.RWMutex
	sessions  map[string]*sessionState
	subs      map[string]map[string]*Subscription // location key -> session id
	locations map[string]Location                 // location key -> coordinates
	peek      Peeker
}

// New creates an empty distributor.
func New() *Distributor {
	return &Distributor{
		sessions:  make(map[string]*sessionState),
		subs:      make(map[string]map[string]*Subscription),
		locations: make(map[string]Location),
	}
}

// SetPeek wires the live-cache lookup used for immediate delivery on
// subscribe. Must be called during wiring.
func (d *Distributor) SetPeek(peek Peeker) {
	d.peek = peek
}

// Register creates a session and returns its id plus, for push
// sessions, the event channel the transport endpoint drains.
func (d *Distributor) Register(transport Transport) (string, <-chan Event) {
	sess := &sessionState{
		id:        uuid.NewString(),
		transport: transport,
	}
	if transport == TransportPush {
		sess.events = make(chan Event, eventBuffer)
	}

	d.mu.Lock()
	d.sessions[sess.id] = sess
	d.mu.Unlock()

	metrics.ActiveSessions.Inc()
	slog.Info("session registered", "session", sess.id, "transport", transport)
	return sess.id, sess.events
}

// Deregister removes a session and all its subscriptions. Idempotent.
func (d *Distributor) Deregister(sessionID string) {
	d.mu.Lock()
	sess, ok := d.sessions[sessionID]
	if ok {
		delete(d.sessions, sessionID)
		d.removeSubscriptionsLocked(sessionID)
		if sess.events != nil {
			close(sess.events)
		}
	}
	d.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Dec()
		slog.Info("session deregistered", "session", sessionID)
	}
}

// Subscribe registers a session's interest in a location. If a live
// cache entry already exists it is delivered immediately; the
// subscriber does not wait for the next refresh cycle.
func (d *Distributor) Subscribe(ctx context.Context, sessionID string, loc Location) {
	d.mu.Lock()
	sess, ok := d.sessions[sessionID]
	if !ok {
		d.mu.Unlock()
		return
	}

	if _, ok := d.subs[loc.Key]; !ok {
		d.subs[loc.Key] = make(map[string]*Subscription)
	}
	sub := &Subscription{
		SessionID:   sessionID,
		LocationKey: loc.Key,
		Transport:   sess.transport,
	}
	d.subs[loc.Key][sessionID] = sub
	d.locations[loc.Key] = loc
	d.mu.Unlock()

	if d.peek != nil {
		if obs, ok := d.peek(ctx, loc.Key); ok {
			d.mu.Lock()
			d.deliverLocked(sess, sub, obs)
			d.mu.Unlock()
		}
	}
}

// Unsubscribe removes all of a session's subscriptions. Idempotent;
// the session itself stays registered.
func (d *Distributor) Unsubscribe(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeSubscriptionsLocked(sessionID)
}

func (d *Distributor) removeSubscriptionsLocked(sessionID string) {
	for key, sessions := range d.subs {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(d.subs, key)
			delete(d.locations, key)
		}
	}
}

// Publish delivers an observation to every current subscriber of the
// location key. Every subscriber observes the same instance. A
// delivery failure to one subscriber never affects the others and
// never reaches the caller.
func (d *Distributor) Publish(key string, obs *models.NormalizedObservation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subscribers := d.subs[key]
	if len(subscribers) == 0 {
		return
	}

	for sessionID, sub := range subscribers {
		sess, ok := d.sessions[sessionID]
		if !ok {
			continue
		}
		d.deliverLocked(sess, sub, obs)
	}

	metrics.PublishedUpdates.Inc()
	slog.Debug("published update", "key", key, "subscribers", len(subscribers))
}

func (d *Distributor) deliverLocked(sess *sessionState, sub *Subscription, obs *models.NormalizedObservation) {
	switch sess.transport {
	case TransportPush:
		select {
		case sess.events <- Event{Type: EventWeatherUpdate, Observation: obs}:
			sub.LastDeliveredAt = time.Now()
		default:
			// Slow or dead subscriber; drop rather than block the publisher.
			metrics.DroppedDeliveries.Inc()
			slog.Warn("subscriber channel full, dropping update", "session", sess.id, "key", sub.LocationKey)
		}
	case TransportPoll:
		sess.mailbox = obs
		sub.LastDeliveredAt = time.Now()
	}
}

// PollNext drains a poll session's mailbox: the most recent published
// observation since the last poll, if any. Repeated identical fetches
// are avoided because the mailbox is pre-populated by Publish.
func (d *Distributor) PollNext(sessionID string) (*models.NormalizedObservation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess, ok := d.sessions[sessionID]
	if !ok || sess.mailbox == nil {
		return nil, false
	}
	obs := sess.mailbox
	sess.mailbox = nil
	return obs, true
}

// SendTo delivers an event to one push session, e.g. a pong reply.
func (d *Distributor) SendTo(sessionID string, event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sess, ok := d.sessions[sessionID]
	if !ok || sess.events == nil {
		return
	}
	select {
	case sess.events <- event:
	default:
		metrics.DroppedDeliveries.Inc()
	}
}

// Broadcast sends an event to every push session regardless of
// location, e.g. a provider switch notification.
func (d *Distributor) Broadcast(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, sess := range d.sessions {
		if sess.events == nil {
			continue
		}
		select {
		case sess.events <- event:
		default:
			metrics.DroppedDeliveries.Inc()
		}
	}
}

// Locations returns the distinct subscribed locations, for the
// periodic refresh driver.
func (d *Distributor) Locations() []Location {
	d.mu.RLock()
	defer d.mu.RUnlock()

	locs := make([]Location, 0, len(d.locations))
	for _, loc := range d.locations {
		locs = append(locs, loc)
	}
	return locs
}

// SessionCount returns the number of registered sessions.
func (d *Distributor) SessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
