// Package permission is the durable per-origin/per-chain permission
// store. A permission is created on the first approved connect, touched
// on every access, and removed on explicit revoke or when it has been
// idle past the configured cutoff.
package permission

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

const (
	recordKey     = "site_permissions"
	recordVersion = 1
)

// Config tunes store maintenance.
type Config struct {
	// AutoRevokeAfterDays purges permissions idle longer than this.
	// 0 disables idle purging.
	AutoRevokeAfterDays int
	// MaxConnectedSites caps the number of distinct connected origins.
	// 0 means unlimited.
	MaxConnectedSites int
}

// Store manages SitePermission records in the persistent region.
type Store struct {
	db    *storage.Store
	cfg   Config
	mu    sync.Mutex
	clock func() time.Time
}

type record struct {
	Permissions map[string]model.SitePermission `json:"permissions"`
}

// NewStore creates a permission store over the given durable storage.
func NewStore(db *storage.Store, cfg Config) *Store {
	return &Store{db: db, cfg: cfg, clock: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) load() (record, error) {
	rec := record{Permissions: map[string]model.SitePermission{}}
	if _, err := s.db.Get(storage.RegionPersistent, recordKey, recordVersion, &rec); err != nil {
		return rec, err
	}
	if rec.Permissions == nil {
		rec.Permissions = map[string]model.SitePermission{}
	}
	return rec, nil
}

func (s *Store) save(rec record) error {
	return s.db.Put(storage.RegionPersistent, recordKey, recordVersion, rec)
}

// Get returns the permission for (origin, chainKind), if any.
func (s *Store) Get(origin string, kind model.ChainKind) (model.SitePermission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return model.SitePermission{}, false, err
	}
	p, ok := rec.Permissions[model.PermissionKey(origin, kind)]
	return p, ok, nil
}

// Set creates or replaces the permission for its (origin, chainKind)
// key. New origins are rejected once the distinct-origin cap is reached.
func (s *Store) Set(p model.SitePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}

	key := model.PermissionKey(p.Origin, p.ChainKind)
	if _, exists := rec.Permissions[key]; !exists && s.cfg.MaxConnectedSites > 0 {
		origins := map[string]bool{}
		for _, existing := range rec.Permissions {
			origins[existing.Origin] = true
		}
		if !origins[p.Origin] && len(origins) >= s.cfg.MaxConnectedSites {
			return fmt.Errorf("permission: connected site limit reached (%d)", s.cfg.MaxConnectedSites)
		}
	}

	now := s.clock()
	if p.ConnectedAt.IsZero() {
		p.ConnectedAt = now
	}
	p.LastAccessed = now

	rec.Permissions[key] = p
	return s.save(rec)
}

// Revoke removes the permission for (origin, chainKind). An empty chain
// kind revokes every chain kind for the origin.
func (s *Store) Revoke(origin string, kind model.ChainKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}

	if kind != "" {
		delete(rec.Permissions, model.PermissionKey(origin, kind))
	} else {
		for key, p := range rec.Permissions {
			if p.Origin == origin {
				delete(rec.Permissions, key)
			}
		}
	}
	return s.save(rec)
}

// RevokeAll removes every permission.
func (s *Store) RevokeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(record{Permissions: map[string]model.SitePermission{}})
}

// HasPermission reports whether the origin holds any permission on the
// chain kind.
func (s *Store) HasPermission(origin string, kind model.ChainKind) (bool, error) {
	_, ok, err := s.Get(origin, kind)
	return ok, err
}

// HasAccountPermission reports whether the origin has been granted the
// specific account on the chain kind.
func (s *Store) HasAccountPermission(origin string, kind model.ChainKind, account string) (bool, error) {
	p, ok, err := s.Get(origin, kind)
	if err != nil || !ok {
		return false, err
	}
	for _, a := range p.Accounts {
		if a == account {
			return true, nil
		}
	}
	return false, nil
}

// ShouldAutoApprove reports whether a connect request from the origin
// may bypass the approval surface. True only when a permission exists
// and was remembered. This is the sole approval bypass: signing and
// fund-moving operations always take the full approval path.
func (s *Store) ShouldAutoApprove(origin string, kind model.ChainKind) (bool, error) {
	p, ok, err := s.Get(origin, kind)
	if err != nil || !ok {
		return false, err
	}
	return p.Remember, nil
}

// Touch refreshes lastAccessed for (origin, chainKind).
func (s *Store) Touch(origin string, kind model.ChainKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}
	key := model.PermissionKey(origin, kind)
	p, ok := rec.Permissions[key]
	if !ok {
		return nil
	}
	p.LastAccessed = s.clock()
	rec.Permissions[key] = p
	return s.save(rec)
}

// PurgeIdle removes permissions whose lastAccessed is older than the
// configured idle cutoff. Returns how many were removed.
func (s *Store) PurgeIdle() (int, error) {
	if s.cfg.AutoRevokeAfterDays <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return 0, err
	}

	cutoff := s.clock().AddDate(0, 0, -s.cfg.AutoRevokeAfterDays)
	removed := 0
	for key, p := range rec.Permissions {
		if p.LastAccessed.Before(cutoff) {
			delete(rec.Permissions, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(rec)
}

// List returns all permissions ordered by key.
func (s *Store) List() ([]model.SitePermission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rec.Permissions))
	for key := range rec.Permissions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]model.SitePermission, 0, len(keys))
	for _, key := range keys {
		out = append(out, rec.Permissions[key])
	}
	return out, nil
}
