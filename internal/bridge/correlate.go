package bridge

import (
	"sync"
	"time"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

const (
	// maxInFlight caps the correlation table. The oldest entry is
	// evicted and answered when a new request would exceed it.
	maxInFlight = 100

	// entryTTL bounds how long an unanswered entry may linger before
	// the sweeper answers it with a timeout.
	entryTTL = 5 * time.Minute
)

type pendingEntry struct {
	id        string
	nonce     string
	createdAt time.Time
	reply     func(model.ResponsePayload)
}

// Correlator matches responses back to in-flight requests. Every entry
// carries a single-use nonce; a response is delivered only when its
// nonce matches the entry's.
type Correlator struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
	order   []string
	now     func() time.Time
}

// NewCorrelator builds an empty correlation table.
func NewCorrelator() *Correlator {
	return &Correlator{
		entries: map[string]*pendingEntry{},
		now:     time.Now,
	}
}

// Add registers an in-flight request. At capacity, the oldest entry is
// evicted and answered with an internal queue-full error so its caller
// does not hang.
func (c *Correlator) Add(id, nonce string, reply func(model.ResponsePayload)) {
	c.mu.Lock()

	var evicted *pendingEntry
	if len(c.order) >= maxInFlight {
		oldest := c.order[0]
		c.order = c.order[1:]
		evicted = c.entries[oldest]
		delete(c.entries, oldest)
	}
	c.entries[id] = &pendingEntry{id: id, nonce: nonce, createdAt: c.now(), reply: reply}
	c.order = append(c.order, id)
	c.mu.Unlock()

	if evicted != nil {
		evicted.reply(model.ResponsePayload{
			Nonce: evicted.nonce,
			Error: model.NewProviderError(model.CodeInternal, "request queue full"),
		})
	}
}

// Resolve delivers a response to the entry for id. A missing entry or
// a nonce mismatch leaves the table unchanged and reports false.
func (c *Correlator) Resolve(id, nonce string, resp model.ResponsePayload) bool {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok || entry.nonce != nonce {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, id)
	c.removeFromOrder(id)
	c.mu.Unlock()

	resp.Nonce = nonce
	entry.reply(resp)
	return true
}

// Drop removes an entry without answering it. Used when the page
// connection is gone and there is nobody left to reply to.
func (c *Correlator) Drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.removeFromOrder(id)
}

// Sweep answers entries older than the TTL with a timeout error.
// Returns how many were swept.
func (c *Correlator) Sweep() int {
	c.mu.Lock()
	var stale []*pendingEntry
	cutoff := c.now().Add(-entryTTL)
	for id, entry := range c.entries {
		if entry.createdAt.Before(cutoff) {
			stale = append(stale, entry)
			delete(c.entries, id)
			c.removeFromOrder(id)
		}
	}
	c.mu.Unlock()

	for _, entry := range stale {
		entry.reply(model.ResponsePayload{
			Nonce: entry.nonce,
			Error: model.NewProviderError(model.CodeInternal, "request timed out at the bridge"),
		})
	}
	return len(stale)
}

// Len reports the number of in-flight entries.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Correlator) removeFromOrder(id string) {
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
