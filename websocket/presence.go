package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/metrics"
)

// Presence tracks which users currently hold at least one live
// subscription. It is process-wide, ephemeral state: populated on connect,
// cleared on disconnect, never persisted and never consulted for delivery
// correctness. Only the hub's subscribe/unsubscribe path mutates it.
type Presence struct {
	mu     sync.RWMutex
	counts map[uuid.UUID]int
}

func NewPresence() *Presence {
	return &Presence{counts: make(map[uuid.UUID]int)}
}

func (p *Presence) connected(userID uuid.UUID) {
	p.mu.Lock()
	p.counts[userID]++
	if p.counts[userID] == 1 {
		metrics.OnlineUsers.Inc()
	}
	p.mu.Unlock()
}

func (p *Presence) disconnected(userID uuid.UUID) {
	p.mu.Lock()
	if n, ok := p.counts[userID]; ok {
		if n <= 1 {
			delete(p.counts, userID)
			metrics.OnlineUsers.Dec()
		} else {
			p.counts[userID] = n - 1
		}
	}
	p.mu.Unlock()
}

// Online reports whether the user has at least one live subscription.
// UI indicator only.
func (p *Presence) Online(userID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[userID] > 0
}
