// Package notify is the in-process notification hub: best-effort, at-most-once
// fan-out to live SSE subscribers keyed by user id and role, plus a bounded
// recent-events buffer. Nothing here survives a restart, and nothing is shared
// across instances; single-node by design.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	UserIDs   []string       `json:"userIds"`
	Roles     []string       `json:"roles"`
	CreatedAt time.Time      `json:"createdAt"`
}

// broadcast: an event with no explicit targets goes to everyone, both live and
// in history. The two paths share one rule on purpose.
func (e Event) broadcast() bool {
	return len(e.UserIDs) == 0 && len(e.Roles) == 0
}

// Subscription is one live stream (one tab, one device). Events are delivered
// through a buffered channel; a subscriber that cannot keep up loses events
// rather than blocking the publisher.
type Subscription struct {
	userID string
	role   string
	events chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

type Hub struct {
	mu       sync.Mutex
	userSubs map[string]map[*Subscription]struct{}
	roleSubs map[string]map[*Subscription]struct{}
	recent   []Event
	capacity int

	heartbeat time.Duration
	now       func() time.Time
	newID     func() string
}

func NewHub(capacity int, heartbeat time.Duration) *Hub {
	return &Hub{
		userSubs:  map[string]map[*Subscription]struct{}{},
		roleSubs:  map[string]map[*Subscription]struct{}{},
		capacity:  capacity,
		heartbeat: heartbeat,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

func (h *Hub) HeartbeatInterval() time.Duration {
	return h.heartbeat
}

// Subscribe registers a connection under both its user-id and role buckets and
// queues the initial connected event. Callers must Unsubscribe on disconnect.
func (h *Hub) Subscribe(userID, role string) *Subscription {
	sub := &Subscription{
		userID: userID,
		role:   role,
		events: make(chan Event, 32),
	}

	h.mu.Lock()
	addSub(h.userSubs, userID, sub)
	addSub(h.roleSubs, role, sub)
	h.mu.Unlock()

	sub.events <- Event{
		Type:      "connected",
		Message:   "notification stream connected",
		CreatedAt: h.now(),
	}
	return sub
}

// Unsubscribe removes the connection from both buckets; empty buckets are
// pruned so the registries do not grow with churn.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	removeSub(h.userSubs, sub.userID, sub)
	removeSub(h.roleSubs, sub.role, sub)
	h.mu.Unlock()
}

// Publish stamps the event, records it in the recent buffer, and delivers it
// to the deduplicated union of user and role targets. The target set is
// snapshotted under the lock; delivery happens outside it.
func (h *Hub) Publish(event Event) Event {
	event.ID = h.newID()
	event.CreatedAt = h.now()
	if event.UserIDs == nil {
		event.UserIDs = []string{}
	}
	if event.Roles == nil {
		event.Roles = []string{}
	}

	h.mu.Lock()
	h.recent = append([]Event{event}, h.recent...)
	if len(h.recent) > h.capacity {
		h.recent = h.recent[:h.capacity]
	}
	targets := h.targetsLocked(event)
	h.mu.Unlock()

	for sub := range targets {
		select {
		case sub.events <- event:
		default:
			// subscriber buffer full; at-most-once means we drop, not block
		}
	}
	return event
}

func (h *Hub) targetsLocked(event Event) map[*Subscription]struct{} {
	targets := map[*Subscription]struct{}{}
	if event.broadcast() {
		for _, bucket := range h.userSubs {
			for sub := range bucket {
				targets[sub] = struct{}{}
			}
		}
		return targets
	}
	for _, userID := range event.UserIDs {
		for sub := range h.userSubs[userID] {
			targets[sub] = struct{}{}
		}
	}
	for _, role := range event.Roles {
		for sub := range h.roleSubs[role] {
			targets[sub] = struct{}{}
		}
	}
	return targets
}

// RecentFor returns buffered events visible to the given user: targeted at the
// user id, at the role, or broadcast. Newest first.
func (h *Hub) RecentFor(userID, role string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	visible := make([]Event, 0, len(h.recent))
	for _, event := range h.recent {
		if event.broadcast() || contains(event.UserIDs, userID) || contains(event.Roles, role) {
			visible = append(visible, event)
		}
	}
	return visible
}

func addSub(buckets map[string]map[*Subscription]struct{}, key string, sub *Subscription) {
	bucket, ok := buckets[key]
	if !ok {
		bucket = map[*Subscription]struct{}{}
		buckets[key] = bucket
	}
	bucket[sub] = struct{}{}
}

func removeSub(buckets map[string]map[*Subscription]struct{}, key string, sub *Subscription) {
	bucket, ok := buckets[key]
	if !ok {
		return
	}
	delete(bucket, sub)
	if len(bucket) == 0 {
		delete(buckets, key)
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
