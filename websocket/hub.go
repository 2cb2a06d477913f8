package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/metrics"
	"github.com/jdvalenciag/emprende_hub/models"
)

const subscriptionBuffer = 64

// Subscription is one live connection's feed of pushed messages. A user may
// hold several at once (one per tab); each receives every publish addressed
// to the user. The channel is closed by Unsubscribe and never by the
// publisher.
type Subscription struct {
	UserID uuid.UUID
	C      <-chan *models.Message

	ch   chan *models.Message
	once sync.Once

	// lastSeq guards per-conversation ordering: a push that would arrive
	// behind an already-delivered sequence is dropped instead of reordered,
	// and the client recovers it through history catch-up.
	mu      sync.Mutex
	lastSeq map[uuid.UUID]int64
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

func (s *Subscription) admit(msg *models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Seq <= s.lastSeq[msg.ConversationID] {
		return false
	}
	s.lastSeq[msg.ConversationID] = msg.Seq
	return true
}

// Hub is the delivery broker: it fans newly committed messages out to the
// recipients' live subscriptions. It is an optimization layer over the
// message store, never the source of truth — a message that cannot be
// pushed simply waits for catch-up.
type Hub struct {
	presence *Presence

	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	bridge *NATSBridge
}

func NewHub(presence *Presence) *Hub {
	return &Hub{
		presence: presence,
		subs:     make(map[uuid.UUID]map[*Subscription]struct{}),
	}
}

// Presence returns the tracker fed by this hub's connect/disconnect path.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// UseBridge routes publishes through a shared pub/sub fabric so every node
// holding a subscription for the recipient sees them.
func (h *Hub) UseBridge(b *NATSBridge) {
	h.mu.Lock()
	h.bridge = b
	h.mu.Unlock()
}

// Subscribe registers a new live subscription for the user and marks the
// user online.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &Subscription{
		UserID:  userID,
		ch:      make(chan *models.Message, subscriptionBuffer),
		lastSeq: make(map[uuid.UUID]int64),
	}
	sub.C = sub.ch

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	h.presence.connected(userID)
	metrics.ActiveSubscriptions.Inc()
	return sub
}

// Unsubscribe removes the registration, releases the presence slot and
// closes the feed channel. All of that happens before Unsubscribe returns,
// so a disconnect never leaks a registration. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	removed := false
	if set, ok := h.subs[sub.UserID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			removed = true
			if len(set) == 0 {
				delete(h.subs, sub.UserID)
			}
		}
	}
	h.mu.Unlock()

	if removed {
		h.presence.disconnected(sub.UserID)
		metrics.ActiveSubscriptions.Dec()
		sub.close()
	}
}

// Publish fans a committed message out to every live subscription of each
// recipient. Called exactly once per message, after the store commit.
// Delivery is at-most-once and best-effort.
func (h *Hub) Publish(msg *models.Message, recipients ...uuid.UUID) {
	h.mu.RLock()
	bridge := h.bridge
	h.mu.RUnlock()

	if bridge != nil {
		bridge.publish(msg, recipients)
		return
	}
	for _, r := range recipients {
		h.deliverLocal(r, msg)
	}
}

func (h *Hub) deliverLocal(userID uuid.UUID, msg *models.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[userID] {
		if !sub.admit(msg) {
			metrics.MessagesDropped.Inc()
			continue
		}
		select {
		case sub.ch <- msg:
			metrics.MessagesDelivered.Inc()
		default:
			// Slow consumer; the client reconciles via ListSince.
			metrics.MessagesDropped.Inc()
		}
	}
}
