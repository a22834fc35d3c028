package cli

import (
	"fmt"
	"os"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/audit"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/chains"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/config"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/denylist"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/orchestrator"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/origins"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/permission"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/queue"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

// stack is the assembled engine: storage, queue, permissions, decoder,
// audit log, and the orchestrator over them. Commands that touch the
// request lifecycle build one, act, and close it.
type stack struct {
	cfg      *config.Config
	db       *storage.Store
	queue    *queue.Queue
	perms    *permission.Store
	origins  *origins.Table
	registry *chains.Registry
	tables   *decode.Tables
	decoder  *decode.Decoder
	denylist *denylist.Denylist
	audit    *audit.Log
	orch     *orchestrator.Orchestrator
}

func openStack(configPath string) (*stack, error) {
	return openStackFresh(configPath, false)
}

// openStackFresh optionally clears the session region before any
// component caches it.
func openStackFresh(configPath string, freshSession bool) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if freshSession {
		if err := db.ClearRegion(storage.RegionSession); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to clear session state: %w", err)
		}
	}

	s := &stack{cfg: cfg, db: db}
	if err := s.assemble(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *stack) assemble() error {
	cfg := s.cfg

	s.queue = queue.New(s.db, queue.Config{
		Timeout:    cfg.QueueTimeout(),
		PruneGrace: cfg.PruneGrace(),
	})
	s.perms = permission.NewStore(s.db, permission.Config{
		AutoRevokeAfterDays: cfg.Permissions.AutoRevokeAfterDays,
		MaxConnectedSites:   cfg.Permissions.MaxConnectedSites,
	})

	var err error
	s.origins, err = origins.NewTable(s.db)
	if err != nil {
		return fmt.Errorf("failed to load origin table: %w", err)
	}
	s.registry, err = chains.Load(cfg.ChainsFile)
	if err != nil {
		return fmt.Errorf("failed to load chain registry: %w", err)
	}

	s.tables, err = decode.LoadTables()
	if err != nil {
		return fmt.Errorf("failed to load signature tables: %w", err)
	}
	if cfg.Decode.ContractsFile != "" {
		if err := s.tables.LoadContractsFile(cfg.Decode.ContractsFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: contracts file ignored: %v\n", err)
		}
	}
	s.decoder, err = decode.New(
		decode.WithTables(s.tables),
		decode.WithCacheCapacity(cfg.Decode.CacheCapacity),
	)
	if err != nil {
		return err
	}

	s.denylist, err = denylist.Load(cfg.DenylistFile)
	if err != nil {
		return fmt.Errorf("failed to load denylist: %w", err)
	}

	s.audit, err = audit.Open(cfg.AuditLog)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	s.orch = orchestrator.New(orchestrator.Options{
		Queue:    s.queue,
		Perms:    s.perms,
		Origins:  s.origins,
		Registry: s.registry,
		Decoder:  s.decoder,
		Audit:    s.audit,
		Denylist: s.denylist,
	})
	return nil
}

func (s *stack) Close() {
	if s.audit != nil {
		s.audit.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
