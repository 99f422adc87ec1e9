package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainConnected(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		require.Equal(t, "connected", event.Type)
	case <-time.After(time.Second):
		t.Fatal("no connected event")
	}
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("expected an event")
		return Event{}
	}
}

func assertSilent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event %q for subscriber", event.Type)
	default:
	}
}

func TestPublishTargetsUserBucket(t *testing.T) {
	hub := NewHub(10, time.Second)

	alice := hub.Subscribe("u1", "INFLUENCER")
	aliceTab2 := hub.Subscribe("u1", "INFLUENCER")
	bob := hub.Subscribe("u2", "INFLUENCER")
	drainConnected(t, alice)
	drainConnected(t, aliceTab2)
	drainConnected(t, bob)

	hub.Publish(Event{Type: "x", UserIDs: []string{"u1"}})

	assert.Equal(t, "x", receive(t, alice).Type)
	assert.Equal(t, "x", receive(t, aliceTab2).Type)
	assertSilent(t, bob)
}

func TestPublishDeduplicatesUserAndRoleOverlap(t *testing.T) {
	hub := NewHub(10, time.Second)

	sub := hub.Subscribe("u1", "BRAND")
	drainConnected(t, sub)

	hub.Publish(Event{Type: "x", UserIDs: []string{"u1"}, Roles: []string{"BRAND"}})

	assert.Equal(t, "x", receive(t, sub).Type)
	assertSilent(t, sub)
}

func TestPublishToRole(t *testing.T) {
	hub := NewHub(10, time.Second)

	admin := hub.Subscribe("u9", "ADMIN")
	brand := hub.Subscribe("u1", "BRAND")
	drainConnected(t, admin)
	drainConnected(t, brand)

	hub.Publish(Event{Type: "moderation", Roles: []string{"ADMIN"}})

	assert.Equal(t, "moderation", receive(t, admin).Type)
	assertSilent(t, brand)
}

func TestUntargetedEventBroadcastsEverywhere(t *testing.T) {
	hub := NewHub(10, time.Second)

	alice := hub.Subscribe("u1", "BRAND")
	bob := hub.Subscribe("u2", "INFLUENCER")
	drainConnected(t, alice)
	drainConnected(t, bob)

	hub.Publish(Event{Type: "announcement"})

	// broadcast semantics are the same live and in history
	assert.Equal(t, "announcement", receive(t, alice).Type)
	assert.Equal(t, "announcement", receive(t, bob).Type)
	assert.Len(t, hub.RecentFor("u3", "INFLUENCER"), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(10, time.Second)

	sub := hub.Subscribe("u1", "BRAND")
	drainConnected(t, sub)
	hub.Unsubscribe(sub)

	hub.Publish(Event{Type: "x", UserIDs: []string{"u1"}})
	assertSilent(t, sub)

	// bucket pruning: a fresh subscriber for the same key still works
	again := hub.Subscribe("u1", "BRAND")
	drainConnected(t, again)
	hub.Publish(Event{Type: "y", UserIDs: []string{"u1"}})
	assert.Equal(t, "y", receive(t, again).Type)
}

func TestRecentBufferBounded(t *testing.T) {
	hub := NewHub(5, time.Second)

	for i := 0; i < 8; i++ {
		hub.Publish(Event{Type: fmt.Sprintf("e%d", i), UserIDs: []string{"u1"}})
	}

	recent := hub.RecentFor("u1", "INFLUENCER")
	require.Len(t, recent, 5)
	// newest first, oldest evicted
	assert.Equal(t, "e7", recent[0].Type)
	assert.Equal(t, "e3", recent[4].Type)
}

func TestRecentForFiltersByUserAndRole(t *testing.T) {
	hub := NewHub(10, time.Second)

	hub.Publish(Event{Type: "for-user", UserIDs: []string{"u1"}})
	hub.Publish(Event{Type: "for-role", Roles: []string{"BRAND"}})
	hub.Publish(Event{Type: "for-other", UserIDs: []string{"u2"}})

	recent := hub.RecentFor("u1", "BRAND")
	require.Len(t, recent, 2)
	assert.Equal(t, "for-role", recent[0].Type)
	assert.Equal(t, "for-user", recent[1].Type)
}

func TestPublishAssignsIDAndTimestamp(t *testing.T) {
	hub := NewHub(10, time.Second)

	event := hub.Publish(Event{Type: "x", UserIDs: []string{"u1"}})
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NotNil(t, event.Roles)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(100, time.Second)

	sub := hub.Subscribe("u1", "BRAND")
	// never drained; fill the buffer past capacity
	for i := 0; i < 40; i++ {
		hub.Publish(Event{Type: "x", UserIDs: []string{"u1"}})
	}

	// publisher never blocked, and history kept everything
	assert.Len(t, hub.RecentFor("u1", "BRAND"), 40)
	hub.Unsubscribe(sub)
}
