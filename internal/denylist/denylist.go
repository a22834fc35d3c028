// Package denylist blocks known-phishing origins and drainer addresses
// before a request ever reaches the approval queue. Users approve what
// they are shown; a convincing fake never gets the chance to be shown.
package denylist

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Patterns holds the raw blocklist entries by category.
type Patterns struct {
	// Origins are glob-style host patterns, e.g. "*.wallet-verify.app".
	Origins []string `yaml:"origins"`
	// Addresses are known drainer or sanctioned addresses, matched
	// case-insensitively and exactly.
	Addresses []string `yaml:"addresses"`
}

// Denylist holds compiled patterns for fast matching. Safe for
// concurrent use; Reload swaps the compiled state atomically.
type Denylist struct {
	mu             sync.RWMutex
	originPatterns []*regexp.Regexp
	addresses      map[string]struct{}
	raw            Patterns
	path           string
}

// New creates a Denylist from raw patterns, compiling origin globs.
// Patterns that fail to compile are skipped.
func New(p Patterns) *Denylist {
	d := &Denylist{}
	d.install(p)
	return d
}

// NewDefault creates a Denylist with the built-in patterns.
func NewDefault() *Denylist {
	return New(DefaultPatterns)
}

// Load reads a denylist from a YAML file. Empty path falls back to
// ~/.walletguard/denylist.yaml; a missing file yields the defaults.
// File entries extend the defaults rather than replacing them, so an
// operator list can only tighten the net.
func Load(path string) (*Denylist, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewDefault(), nil
		}
		path = filepath.Join(home, ".walletguard", "denylist.yaml")
	}

	d := NewDefault()
	d.path = path
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the backing file and swaps in defaults plus the file
// entries. A file that disappeared leaves the defaults active.
func (d *Denylist) Reload() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.install(DefaultPatterns)
			return nil
		}
		return err
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return err
	}
	merged := Patterns{
		Origins:   append(append([]string{}, DefaultPatterns.Origins...), p.Origins...),
		Addresses: append(append([]string{}, DefaultPatterns.Addresses...), p.Addresses...),
	}
	d.install(merged)
	return nil
}

func (d *Denylist) install(p Patterns) {
	var origins []*regexp.Regexp
	for _, o := range p.Origins {
		if compiled, err := regexp.Compile("(?i)^" + patternToRegex(o) + "$"); err == nil {
			origins = append(origins, compiled)
		}
	}
	addrs := make(map[string]struct{}, len(p.Addresses))
	for _, a := range p.Addresses {
		addrs[strings.ToLower(a)] = struct{}{}
	}

	d.mu.Lock()
	d.originPatterns = origins
	d.addresses = addrs
	d.raw = p
	d.mu.Unlock()
}

// IsBlockedOrigin checks a page origin against the origin patterns.
// The scheme is stripped before matching so "https://evil.app" and
// "evil.app" hit the same pattern.
func (d *Denylist) IsBlockedOrigin(origin string) (bool, string) {
	host := strings.ToLower(origin)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, re := range d.originPatterns {
		if re.MatchString(host) {
			return true, "origin matches blocked pattern " + re.String()
		}
	}
	return false, ""
}

// IsBlockedAddress checks a destination or spender address.
func (d *Denylist) IsBlockedAddress(addr string) (bool, string) {
	if addr == "" {
		return false, ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.addresses[strings.ToLower(addr)]; ok {
		return true, "address is on the drainer blocklist"
	}
	return false, ""
}

// AddPattern adds one entry at runtime, for tests and for future
// list-subscription updates.
func (d *Denylist) AddPattern(category, pattern string) {
	d.mu.Lock()
	raw := d.raw
	d.mu.Unlock()

	switch category {
	case "origins":
		raw.Origins = append(raw.Origins, pattern)
	case "addresses":
		raw.Addresses = append(raw.Addresses, pattern)
	default:
		return
	}
	d.install(raw)
}

// patternToRegex converts a glob-style host pattern to a regex
// fragment. "*" spans label boundaries so "*.evil.app" also matches
// "a.b.evil.app".
func patternToRegex(pattern string) string {
	escaped := regexp.QuoteMeta(strings.ToLower(pattern))
	return strings.ReplaceAll(escaped, `\*`, ".*")
}
