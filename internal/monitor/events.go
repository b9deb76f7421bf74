package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/vigil/internal/model"
)

type EventType string

const (
	EventGroupCreated     EventType = "group_created"
	EventDumpCompleted    EventType = "dump_completed"
	EventDumpFailed       EventType = "dump_failed"
	EventChangeDetected   EventType = "change_detected"
	EventEnvironmentReset EventType = "environment_reset"
)

// Event is one monitoring occurrence, fanned out to websocket subscribers.
type Event struct {
	Type       EventType         `json:"type"`
	GroupID    string            `json:"group_id,omitempty"`
	DomainID   string            `json:"domain_id,omitempty"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Trigger    model.TriggerKind `json:"trigger,omitempty"`
	Message    string            `json:"message,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// EventHub fans events out to subscribers. Slow subscribers lose events
// rather than stall the publisher.
type EventHub struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]chan Event)}
}

// Subscribe registers a subscriber and returns its id together with the
// event channel. The channel is closed by Unsubscribe.
func (h *EventHub) Subscribe() (string, <-chan Event) {
	id := uuid.New().String()
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// ignored.
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers ev to every subscriber. Sends never block; a full buffer
// drops the event for that subscriber.
func (h *EventHub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers are currently registered.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
