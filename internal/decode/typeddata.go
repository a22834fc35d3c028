package decode

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Structured-signing payloads: domain-separated typed messages signed
// off-chain. The decoder validates the shape, classifies the payload
// against known patterns, and tags fields the approval surface should
// visually emphasize.

// TypedDataKind classifies a structured-signing payload.
type TypedDataKind string

const (
	TypedPermit        TypedDataKind = "permit"
	TypedBatchedPermit TypedDataKind = "batched_approval"
	TypedOrder         TypedDataKind = "order"
	TypedVote          TypedDataKind = "vote"
	TypedDelegation    TypedDataKind = "delegation"
	TypedGeneric       TypedDataKind = "generic"
)

// HighlightTag marks a message field for emphasis in the approval UI.
type HighlightTag string

const (
	TagSpender  HighlightTag = "spender"
	TagAmount   HighlightTag = "amount"
	TagDeadline HighlightTag = "deadline"
)

// TypedField is one extracted message field.
type TypedField struct {
	Name      string       `json:"name"`
	Value     string       `json:"value"`
	Highlight HighlightTag `json:"highlight,omitempty"`
}

// TypedDataResult is the decoded form of a structured-signing payload.
// ParseError is set instead of panicking or erroring when the payload
// shape is invalid; the human may still sign after an explicit
// acknowledgement.
type TypedDataResult struct {
	Kind       TypedDataKind   `json:"kind"`
	Summary    string          `json:"summary"`
	Domain     []TypedField    `json:"domain,omitempty"`
	Message    []TypedField    `json:"message,omitempty"`
	Warnings   []model.Warning `json:"warnings"`
	Risk       model.RiskLevel `json:"risk"`
	ParseError string          `json:"parse_error,omitempty"`
}

type typedDataPayload struct {
	Types map[string][]struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"types"`
	PrimaryType string                     `json:"primaryType"`
	Domain      map[string]json.RawMessage `json:"domain"`
	Message     map[string]json.RawMessage `json:"message"`
}

// maxUint256 marks a "never" deadline or an infinite amount.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// farFutureDeadline flags deadlines more than ten years out.
const farFutureDeadline = 10 * 365 * 24 * time.Hour

// DecodeTypedData decodes a structured-signing payload. Results are
// cached by content.
func (d *Decoder) DecodeTypedData(raw []byte) TypedDataResult {
	key := cacheKey("typed", string(raw))
	if r, ok := d.cache.get(key); ok {
		return typedFromCache(r)
	}
	r := decodeTypedData(raw)
	d.cache.put(key, typedToCache(r))
	return r
}

// The shared cache stores Result values; typed results ride in it as a
// serialized detail entry.
func typedToCache(t TypedDataResult) Result {
	data, _ := json.Marshal(t)
	return Result{
		Kind:     Kind("typed_" + string(t.Kind)),
		Summary:  t.Summary,
		Warnings: t.Warnings,
		Details:  map[string]string{"typed_data": string(data)},
		Risk:     t.Risk,
	}
}

func typedFromCache(r Result) TypedDataResult {
	var t TypedDataResult
	if raw, ok := r.Details["typed_data"]; ok {
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			return t
		}
	}
	return TypedDataResult{Kind: TypedGeneric, Summary: r.Summary, Warnings: r.Warnings, Risk: r.Risk}
}

func decodeTypedData(raw []byte) TypedDataResult {
	var payload typedDataPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return parseErrorResult(fmt.Sprintf("invalid JSON: %v", err))
	}
	if payload.PrimaryType == "" {
		return parseErrorResult("missing primaryType")
	}
	if payload.Message == nil {
		return parseErrorResult("missing message")
	}

	kind := classifyPrimaryType(payload.PrimaryType)
	r := TypedDataResult{
		Kind:     kind,
		Domain:   extractFields(payload.Domain, nil),
		Warnings: []model.Warning{},
	}

	var highlights map[string]HighlightTag
	switch kind {
	case TypedPermit, TypedBatchedPermit:
		highlights = map[string]HighlightTag{
			"spender":  TagSpender,
			"operator": TagSpender,
			"value":    TagAmount,
			"amount":   TagAmount,
			"deadline": TagDeadline,
			"expiry":   TagDeadline,
		}
	case TypedOrder:
		highlights = map[string]HighlightTag{
			"endTime": TagDeadline, "deadline": TagDeadline, "taker": TagSpender,
		}
	case TypedDelegation:
		highlights = map[string]HighlightTag{"delegatee": TagSpender, "expiry": TagDeadline}
	}
	r.Message = extractFields(payload.Message, highlights)

	for _, f := range r.Message {
		switch f.Highlight {
		case TagAmount:
			if v, ok := new(big.Int).SetString(f.Value, 10); ok &&
				(v.Cmp(unlimitedThreshold) >= 0 || v.Cmp(maxUint256) == 0) {
				r.Warnings = append(r.Warnings, model.Warning{
					Level:       model.WarnDanger,
					Code:        "unlimited_permit",
					Title:       "Unlimited amount",
					Description: fmt.Sprintf("Field %q authorizes an unlimited amount.", f.Name),
				})
			}
		case TagDeadline:
			r.Warnings = append(r.Warnings, deadlineWarnings(f)...)
		}
	}

	r.Summary = typedSummary(kind, payload.PrimaryType)
	r.Risk = riskFromWarnings(r.Warnings)
	return r
}

func parseErrorResult(msg string) TypedDataResult {
	return TypedDataResult{
		Kind:       TypedGeneric,
		Summary:    "Could not parse signing payload",
		ParseError: msg,
		Warnings: []model.Warning{{
			Level:       model.WarnCaution,
			Code:        "unparseable_typed_data",
			Title:       "Could not parse payload",
			Description: "The structured payload does not match the expected shape.",
		}},
		Risk: model.RiskMedium,
	}
}

func classifyPrimaryType(primary string) TypedDataKind {
	switch strings.ToLower(primary) {
	case "permit":
		return TypedPermit
	case "permitbatch", "permitbatchtransferfrom":
		return TypedBatchedPermit
	case "order", "ordercomponents":
		return TypedOrder
	case "ballot", "vote":
		return TypedVote
	case "delegation":
		return TypedDelegation
	}
	return TypedGeneric
}

func typedSummary(kind TypedDataKind, primary string) string {
	switch kind {
	case TypedPermit:
		return "Sign a token spending permit"
	case TypedBatchedPermit:
		return "Sign a batched token approval"
	case TypedOrder:
		return "Sign a marketplace order"
	case TypedVote:
		return "Sign a governance vote"
	case TypedDelegation:
		return "Sign a delegation"
	default:
		return fmt.Sprintf("Sign typed data (%s)", primary)
	}
}

func deadlineWarnings(f TypedField) []model.Warning {
	v, ok := new(big.Int).SetString(f.Value, 10)
	if !ok {
		return nil
	}
	if v.Cmp(maxUint256) == 0 {
		return []model.Warning{{
			Level:       model.WarnCaution,
			Code:        "never_expires",
			Title:       "Never expires",
			Description: fmt.Sprintf("Field %q never expires.", f.Name),
		}}
	}
	if v.IsInt64() {
		deadline := time.Unix(v.Int64(), 0)
		if time.Until(deadline) > farFutureDeadline {
			return []model.Warning{{
				Level:       model.WarnCaution,
				Code:        "far_future_deadline",
				Title:       "Far-future deadline",
				Description: fmt.Sprintf("Field %q expires more than ten years from now.", f.Name),
			}}
		}
	}
	return nil
}

// extractFields flattens a raw JSON object into display fields, sorted
// by name for stable rendering, applying highlight tags by field name.
func extractFields(obj map[string]json.RawMessage, highlights map[string]HighlightTag) []TypedField {
	if obj == nil {
		return nil
	}
	fields := make([]TypedField, 0, len(obj))
	for name, raw := range obj {
		f := TypedField{Name: name, Value: rawToDisplay(raw)}
		if tag, ok := highlights[strings.ToLower(name)]; ok {
			f.Highlight = tag
		}
		fields = append(fields, f)
	}
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j].Name < fields[j-1].Name; j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
	return fields
}

func rawToDisplay(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		// Hex quantities normalize to decimal for display. A 42-char
		// string is an address and stays as-is.
		if strings.HasPrefix(s, "0x") && len(s) > 2 && len(s) <= 66 && len(s) != 42 {
			if v, ok := new(big.Int).SetString(s[2:], 16); ok {
				return v.String()
			}
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
