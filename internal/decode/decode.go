// Package decode turns opaque request payloads into risk-annotated,
// human-readable summaries. Decoding is structural: selector and
// layout based, never executed. A decode result is a pure function of
// its input; the only state is a bounded content-addressed cache.
//
// Nothing in this package returns an error to the approval flow. A
// payload that cannot be parsed degrades to an unknown classification
// with an explanatory warning, so a malformed input can never crash
// the approval UI.
package decode

import (
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Kind classifies what a decoded payload does.
type Kind string

const (
	KindTransfer         Kind = "transfer"
	KindContractCreation Kind = "contract_creation"
	KindContractCall     Kind = "contract_call"
	KindTokenTransfer    Kind = "token_transfer"
	KindApproval         Kind = "approval"
	KindNFTApproval      Kind = "nft_approval"
	KindNFTTransfer      Kind = "nft_transfer"
	KindUnknown          Kind = "unknown"
)

// Param is one named, typed, display-formatted call parameter.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
}

// Result is an immutable decoded transaction.
type Result struct {
	Kind     Kind              `json:"kind"`
	Summary  string            `json:"summary"`
	Warnings []model.Warning   `json:"warnings"`
	Params   []Param           `json:"params,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
	Risk     model.RiskLevel   `json:"risk"`
}

// Decoder holds the signature tables and the result cache.
type Decoder struct {
	tables *Tables
	cache  *cache
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithCacheCapacity bounds the result cache. Oldest entries are
// evicted first.
func WithCacheCapacity(n int) Option {
	return func(d *Decoder) { d.cache = newCache(n) }
}

// WithTables substitutes the signature tables, for hot reload and for
// tests.
func WithTables(t *Tables) Option {
	return func(d *Decoder) { d.tables = t }
}

// New creates a Decoder with the embedded signature tables.
func New(opts ...Option) (*Decoder, error) {
	tables, err := LoadTables()
	if err != nil {
		return nil, err
	}
	d := &Decoder{tables: tables, cache: newCache(defaultCacheCapacity)}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ClearCache drops all cached results.
func (d *Decoder) ClearCache() {
	d.cache.clear()
}

// riskFromWarnings derives the aggregate risk from the warning levels
// alone: any danger is high, any caution is medium.
func riskFromWarnings(warnings []model.Warning) model.RiskLevel {
	risk := model.RiskLow
	for _, w := range warnings {
		switch w.Level {
		case model.WarnDanger:
			return model.RiskHigh
		case model.WarnCaution:
			risk = model.RiskMedium
		}
	}
	return risk
}
