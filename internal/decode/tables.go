package decode

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"
)

//go:embed tables/selectors.jsonc tables/programs.jsonc tables/contracts.jsonc
var tableFS embed.FS

// SelectorSig describes one known 4-byte function selector.
type SelectorSig struct {
	Name      string   `json:"name"`
	Signature string   `json:"signature"`
	Params    []string `json:"params"`
}

// Tables holds the decoder's lookup data. Authored as JSONC (comments
// and trailing commas allowed), embedded at build time, optionally
// overridden from disk. Safe for concurrent use; LoadContractsFile
// swaps the contract list atomically.
type Tables struct {
	mu             sync.RWMutex
	selectors      map[string]SelectorSig
	programs       map[string]string
	knownContracts map[string]string
}

// LoadTables parses the embedded signature tables.
func LoadTables() (*Tables, error) {
	t := &Tables{}
	if err := loadEmbedded("tables/selectors.jsonc", &t.selectors); err != nil {
		return nil, err
	}
	if err := loadEmbedded("tables/programs.jsonc", &t.programs); err != nil {
		return nil, err
	}
	if err := loadEmbedded("tables/contracts.jsonc", &t.knownContracts); err != nil {
		return nil, err
	}
	return t, nil
}

func loadEmbedded(name string, out any) error {
	data, err := tableFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("decode: read embedded %s: %w", name, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), out); err != nil {
		return fmt.Errorf("decode: parse %s: %w", name, err)
	}
	return nil
}

// LoadContractsFile replaces the known-contract list with the contents
// of a JSONC file on disk. Used by the hot reloader, which runs
// concurrently with decode lookups; the fresh list is built off to the
// side and swapped in under the lock.
func (t *Tables) LoadContractsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("decode: read %s: %w", path, err)
	}
	var contracts map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(data), &contracts); err != nil {
		return fmt.Errorf("decode: parse %s: %w", path, err)
	}
	t.mu.Lock()
	t.knownContracts = contracts
	t.mu.Unlock()
	return nil
}

// Selector looks up a 4-byte function selector (hex, no 0x prefix).
func (t *Tables) Selector(sel string) (SelectorSig, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sig, ok := t.selectors[sel]
	return sig, ok
}

// Program looks up a ledger program ID.
func (t *Tables) Program(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.programs[id]
	return name, ok
}

// KnownContract reports whether the address is in the known-contract
// list. Addresses compare case-insensitively.
func (t *Tables) KnownContract(addr string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	label, ok := t.knownContracts[strings.ToLower(addr)]
	return label, ok
}
