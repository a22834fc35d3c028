// Package chains holds the registry of networks the wallet can be
// switched to. The registry starts from a built-in default set, can be
// overlaid from a YAML file, and accepts runtime additions from
// approved add-chain requests.
package chains

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Chain describes one network.
type Chain struct {
	ID       string          `yaml:"id" json:"id"`
	Kind     model.ChainKind `yaml:"kind" json:"kind"`
	Name     string          `yaml:"name" json:"name"`
	RPCURL   string          `yaml:"rpc_url" json:"rpc_url"`
	Symbol   string          `yaml:"symbol" json:"symbol"`
	Decimals int             `yaml:"decimals" json:"decimals"`
	Default  bool            `yaml:"default" json:"default"`
}

// Registry is the mutable set of known chains plus the active
// selection per chain kind.
type Registry struct {
	mu     sync.RWMutex
	chains []Chain
	active map[model.ChainKind]string
	path   string
}

// DefaultChains returns the built-in network set.
func DefaultChains() []Chain {
	return []Chain{
		{ID: "0x1", Kind: model.ChainEVM, Name: "Ethereum Mainnet", RPCURL: "https://eth.llamarpc.com", Symbol: "ETH", Decimals: 18, Default: true},
		{ID: "0x89", Kind: model.ChainEVM, Name: "Polygon", RPCURL: "https://polygon-rpc.com", Symbol: "POL", Decimals: 18},
		{ID: "0xa", Kind: model.ChainEVM, Name: "Optimism", RPCURL: "https://mainnet.optimism.io", Symbol: "ETH", Decimals: 18},
		{ID: "0xa4b1", Kind: model.ChainEVM, Name: "Arbitrum One", RPCURL: "https://arb1.arbitrum.io/rpc", Symbol: "ETH", Decimals: 18},
		{ID: "mainnet-beta", Kind: model.ChainLedger, Name: "Mainnet Beta", RPCURL: "https://api.mainnet-beta.solana.com", Symbol: "SOL", Decimals: 9, Default: true},
		{ID: "devnet", Kind: model.ChainLedger, Name: "Devnet", RPCURL: "https://api.devnet.solana.com", Symbol: "SOL", Decimals: 9},
	}
}

type registryFile struct {
	Chains []Chain `yaml:"chains"`
}

// Load builds a registry from the YAML file at path, overlaid on the
// defaults. A missing file yields the defaults alone; empty path skips
// the file entirely. Invalid YAML returns an error.
func Load(path string) (*Registry, error) {
	r := &Registry{
		chains: DefaultChains(),
		active: map[model.ChainKind]string{},
		path:   path,
	}
	for _, c := range r.chains {
		if c.Default {
			r.active[c.Kind] = c.ID
		}
	}

	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read chain registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chain registry: %w", err)
	}
	for _, c := range file.Chains {
		r.upsertLocked(c)
	}
	return r, nil
}

// Reload re-reads the registry file, replacing file-sourced entries
// while keeping the defaults. Runtime additions not persisted to the
// file are lost; persisted ones come back with it.
func (r *Registry) Reload() error {
	fresh, err := Load(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// Keep the current active selection where the chain still exists.
	for kind, id := range r.active {
		if _, ok := fresh.lookupLocked(id, kind); ok {
			fresh.active[kind] = id
		}
	}
	r.chains = fresh.chains
	r.active = fresh.active
	return nil
}

// List returns a copy of all known chains.
func (r *Registry) List() []Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Chain, len(r.chains))
	copy(out, r.chains)
	return out
}

// Get looks up a chain by id and kind.
func (r *Registry) Get(id string, kind model.ChainKind) (Chain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(id, kind)
}

func (r *Registry) lookupLocked(id string, kind model.ChainKind) (Chain, bool) {
	for _, c := range r.chains {
		if c.Kind == kind && strings.EqualFold(c.ID, id) {
			return c, true
		}
	}
	return Chain{}, false
}

// Active returns the currently selected chain for the kind. If the
// selection points at a chain that no longer exists, the kind's
// default is returned instead.
func (r *Registry) Active(kind model.ChainKind) Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.active[kind]; ok {
		if c, found := r.lookupLocked(id, kind); found {
			return c
		}
	}
	for _, c := range r.chains {
		if c.Kind == kind && c.Default {
			return c
		}
	}
	// Last resort: first chain of the kind.
	for _, c := range r.chains {
		if c.Kind == kind {
			return c
		}
	}
	return Chain{}
}

// Switch changes the active chain for its kind. Unknown targets
// return an unsupported-chain provider error.
func (r *Registry) Switch(id string, kind model.ChainKind) (Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.lookupLocked(id, kind)
	if !ok {
		return Chain{}, model.NewProviderError(model.CodeChainDisconnected,
			fmt.Sprintf("chain %s is not in the registry", id))
	}
	r.active[kind] = c.ID
	return c, nil
}

// Add registers a new chain at runtime and, when the registry is
// file-backed and the file is writable, appends it there so the
// addition survives restarts. A chain with the same id and kind is an
// error; re-adding an identical entry is the caller's signal to treat
// the request as already satisfied.
func (r *Registry) Add(c Chain) error {
	if c.ID == "" || c.Name == "" {
		return model.NewProviderError(model.CodeInvalidParams, "chain id and name are required")
	}
	if _, ok := model.ParseChainKind(string(c.Kind)); !ok {
		return model.NewProviderError(model.CodeInvalidParams, fmt.Sprintf("unknown chain kind %q", c.Kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.lookupLocked(c.ID, c.Kind); exists {
		return fmt.Errorf("chain %s (%s) already registered", c.ID, c.Kind)
	}
	r.chains = append(r.chains, c)

	if r.path != "" {
		if err := r.persistLocked(); err != nil {
			// The in-memory addition stands; persistence is best effort.
			return nil
		}
	}
	return nil
}

func (r *Registry) upsertLocked(c Chain) {
	for i, existing := range r.chains {
		if existing.Kind == c.Kind && strings.EqualFold(existing.ID, c.ID) {
			c.Default = existing.Default || c.Default
			r.chains[i] = c
			return
		}
	}
	r.chains = append(r.chains, c)
}

// persistLocked writes the non-default chains back to the registry
// file atomically.
func (r *Registry) persistLocked() error {
	defaults := map[string]bool{}
	for _, c := range DefaultChains() {
		defaults[string(c.Kind)+":"+strings.ToLower(c.ID)] = true
	}
	var file registryFile
	for _, c := range r.chains {
		if !defaults[string(c.Kind)+":"+strings.ToLower(c.ID)] {
			file.Chains = append(file.Chains, c)
		}
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
