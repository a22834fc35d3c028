// Package origins tracks which tab is connected to which origin and
// chain kind. The arena is persisted wholesale to the session region on
// every mutation and rehydrated at process start, so event broadcasts
// keep working across a host restart.
package origins

import (
	"sort"
	"sync"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

const (
	recordKey     = "connected_origins"
	recordVersion = 1
)

// Entry is one tab's active connection.
type Entry struct {
	Origin    string          `json:"origin"`
	ChainKind model.ChainKind `json:"chain_kind"`
	Accounts  []string        `json:"accounts"`
}

// Table is the connected-origin arena keyed by tab reference.
type Table struct {
	db      *storage.Store
	mu      sync.Mutex
	entries map[string]Entry
}

type record struct {
	Entries map[string]Entry `json:"entries"`
}

// NewTable rehydrates the arena from durable storage.
func NewTable(db *storage.Store) (*Table, error) {
	rec := record{Entries: map[string]Entry{}}
	if _, err := db.Get(storage.RegionSession, recordKey, recordVersion, &rec); err != nil {
		return nil, err
	}
	if rec.Entries == nil {
		rec.Entries = map[string]Entry{}
	}
	return &Table{db: db, entries: rec.Entries}, nil
}

func (t *Table) persist() error {
	return t.db.Put(storage.RegionSession, recordKey, recordVersion, record{Entries: t.entries})
}

// Connect records (or replaces) a tab's connection.
func (t *Table) Connect(tabRef string, e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[tabRef] = e
	return t.persist()
}

// Disconnect removes a tab's connection. Unknown tabs are a no-op.
func (t *Table) Disconnect(tabRef string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[tabRef]; !ok {
		return nil
	}
	delete(t.entries, tabRef)
	return t.persist()
}

// Get returns the connection for a tab.
func (t *Table) Get(tabRef string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[tabRef]
	return e, ok
}

// OriginsForChain returns the distinct origins connected on the chain
// kind, sorted.
func (t *Table) OriginsForChain(kind model.ChainKind) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := map[string]bool{}
	for _, e := range t.entries {
		if e.ChainKind == kind {
			seen[e.Origin] = true
		}
	}
	out := make([]string, 0, len(seen))
	for origin := range seen {
		out = append(out, origin)
	}
	sort.Strings(out)
	return out
}

// TabsForOrigin returns the tabs connected for an origin, sorted.
func (t *Table) TabsForOrigin(origin string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for tabRef, e := range t.entries {
		if e.Origin == origin {
			out = append(out, tabRef)
		}
	}
	sort.Strings(out)
	return out
}
