package distributor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherhub.app/models"
)

func chicago() Location {
	return NewLocation(41.8781, -87.6298, "Chicago", "America/Chicago")
}

func obsFor(loc Location) *models.NormalizedObservation {
	return &models.NormalizedObservation{
		LocationKey: loc.Key,
		ObservedAt:  time.Now().UTC(),
	}
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDistributor(t *testing.T) {
	ctx := context.Background()

	t.Run("publish reaches every subscriber with the same instance", func(t *testing.T) {
		d := New()
		loc := chicago()

		id1, ch1 := d.Register(TransportPush)
		id2, ch2 := d.Register(TransportPush)
		d.Subscribe(ctx, id1, loc)
		d.Subscribe(ctx, id2, loc)

		obs := obsFor(loc)
		d.Publish(loc.Key, obs)

		e1 := recvEvent(t, ch1)
		e2 := recvEvent(t, ch2)
		assert.Equal(t, EventWeatherUpdate, e1.Type)
		assert.Same(t, obs, e1.Observation)
		assert.Same(t, obs, e2.Observation)
	})

	t.Run("no deliveries after unsubscribe", func(t *testing.T) {
		d := New()
		loc := chicago()

		id, ch := d.Register(TransportPush)
		d.Subscribe(ctx, id, loc)
		d.Unsubscribe(id)

		d.Publish(loc.Key, obsFor(loc))
		assertNoEvent(t, ch)
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		d := New()
		id, _ := d.Register(TransportPush)
		d.Unsubscribe(id)
		d.Unsubscribe(id)
		d.Unsubscribe("never-existed")
	})

	t.Run("slow subscriber does not block others", func(t *testing.T) {
		d := New()
		loc := chicago()

		slowID, _ := d.Register(TransportPush) // never drained
		fastID, fastCh := d.Register(TransportPush)
		d.Subscribe(ctx, slowID, loc)
		d.Subscribe(ctx, fastID, loc)

		// Overflow the slow subscriber's buffer.
		for i := 0; i < eventBuffer+5; i++ {
			d.Publish(loc.Key, obsFor(loc))
			recvEvent(t, fastCh)
		}
	})

	t.Run("poll mailbox holds only the latest", func(t *testing.T) {
		d := New()
		loc := chicago()

		id, _ := d.Register(TransportPoll)
		d.Subscribe(ctx, id, loc)

		first := obsFor(loc)
		second := obsFor(loc)
		d.Publish(loc.Key, first)
		d.Publish(loc.Key, second)

		got, ok := d.PollNext(id)
		require.True(t, ok)
		assert.Same(t, second, got)

		_, ok = d.PollNext(id)
		assert.False(t, ok, "mailbox drains on read")
	})

	t.Run("subscribe delivers a live cached entry immediately", func(t *testing.T) {
		d := New()
		loc := chicago()
		cached := obsFor(loc)
		d.SetPeek(func(_ context.Context, key string) (*models.NormalizedObservation, bool) {
			if key == loc.Key {
				return cached, true
			}
			return nil, false
		})

		id, ch := d.Register(TransportPush)
		d.Subscribe(ctx, id, loc)

		event := recvEvent(t, ch)
		assert.Same(t, cached, event.Observation)
	})

	t.Run("locations reflect current subscriptions", func(t *testing.T) {
		d := New()
		loc := chicago()
		other := NewLocation(50.4501, 30.5234, "Kyiv", "Europe/Kyiv")

		id1, _ := d.Register(TransportPush)
		id2, _ := d.Register(TransportPoll)
		d.Subscribe(ctx, id1, loc)
		d.Subscribe(ctx, id2, other)

		locs := d.Locations()
		require.Len(t, locs, 2)

		d.Deregister(id2)
		locs = d.Locations()
		require.Len(t, locs, 1)
		assert.Equal(t, loc.Key, locs[0].Key)
	})

	t.Run("deregister closes the event channel", func(t *testing.T) {
		d := New()
		id, ch := d.Register(TransportPush)
		d.Deregister(id)

		_, open := <-ch
		assert.False(t, open)
		assert.Equal(t, 0, d.SessionCount())
	})

	t.Run("broadcast reaches all push sessions", func(t *testing.T) {
		d := New()
		_, ch1 := d.Register(TransportPush)
		_, ch2 := d.Register(TransportPush)
		pollID, _ := d.Register(TransportPoll)

		d.Broadcast(Event{Type: EventProviderSwitched})

		assert.Equal(t, EventProviderSwitched, recvEvent(t, ch1).Type)
		assert.Equal(t, EventProviderSwitched, recvEvent(t, ch2).Type)

		_, ok := d.PollNext(pollID)
		assert.False(t, ok, "broadcasts do not land in poll mailboxes")
	})

	t.Run("send to one session", func(t *testing.T) {
		d := New()
		id1, ch1 := d.Register(TransportPush)
		_, ch2 := d.Register(TransportPush)

		d.SendTo(id1, Event{Type: EventPong})
		assert.Equal(t, EventPong, recvEvent(t, ch1).Type)
		assertNoEvent(t, ch2)
	})
}
