package model

import (
	"encoding/json"
	"time"
)

// ChainKind identifies which ledger family a request targets.
type ChainKind string

const (
	ChainEVM    ChainKind = "evm"
	ChainLedger ChainKind = "ledger"
)

// ParseChainKind validates a raw chain kind string.
func ParseChainKind(s string) (ChainKind, bool) {
	switch ChainKind(s) {
	case ChainEVM, ChainLedger:
		return ChainKind(s), true
	}
	return "", false
}

// SourceTag distinguishes which script context produced a message.
// A page can only legitimately claim SourcePage; the bridge and the
// privileged host stamp their own tags, so a forged privileged message
// is detectable at the boundary.
type SourceTag string

const (
	SourcePage   SourceTag = "page"
	SourceBridge SourceTag = "bridge"
	SourceHost   SourceTag = "host"
)

// MessageKind classifies a wire envelope.
type MessageKind string

const (
	MsgRequest  MessageKind = "request"
	MsgResponse MessageKind = "response"
	MsgEvent    MessageKind = "event"
)

// Envelope is the wire message crossing the page/privileged boundary.
// Ephemeral, never persisted.
type Envelope struct {
	ID        string          `json:"id"`
	Source    SourceTag       `json:"source"`
	Kind      MessageKind     `json:"kind"`
	ChainKind ChainKind       `json:"chain_kind,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Origin    string          `json:"origin"`
	Timestamp int64           `json:"timestamp"`
}

// RequestPayload is the payload of a MsgRequest envelope.
type RequestPayload struct {
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	TabRef  string          `json:"tab_ref,omitempty"`
	Title   string          `json:"title,omitempty"`
	Favicon string          `json:"favicon,omitempty"`
}

// ResponsePayload is the payload of a MsgResponse envelope.
type ResponsePayload struct {
	Nonce  string          `json:"nonce,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ProviderError  `json:"error,omitempty"`
}

// EventPayload is the payload of a MsgEvent envelope relayed page-ward.
type EventPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NormalizedRequest is what the bridge forwards to the privileged side
// after boundary validation: Origin is the verified page origin, not the
// declared one, and Nonce binds the request to its eventual response.
type NormalizedRequest struct {
	ChainKind ChainKind       `json:"chain_kind"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	Origin    string          `json:"origin"`
	TabRef    string          `json:"tab_ref"`
	Title     string          `json:"title,omitempty"`
	Favicon   string          `json:"favicon,omitempty"`
	Nonce     string          `json:"nonce,omitempty"`
}

// RequestStatus is the lifecycle state of a queued request.
// pending transitions at most once to one of the terminal states.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusExpired   RequestStatus = "expired"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RequestStatus) Terminal() bool {
	return s != StatusPending && s != ""
}

// ApprovalKind dispatches an approved request to its handler.
type ApprovalKind string

const (
	ApprovalConnect     ApprovalKind = "connect"
	ApprovalSignMessage ApprovalKind = "sign_message"
	ApprovalSign        ApprovalKind = "sign"
	ApprovalTransaction ApprovalKind = "transaction"
	ApprovalSwitchChain ApprovalKind = "switch_chain"
	ApprovalAddChain    ApprovalKind = "add_chain"
)

// QueuedRequest is the durable record of an in-flight approval.
type QueuedRequest struct {
	ID           string          `json:"id"`
	Nonce        string          `json:"nonce"`
	Origin       string          `json:"origin"`
	TabRef       string          `json:"tab_ref"`
	ChainKind    ChainKind       `json:"chain_kind"`
	Method       string          `json:"method"`
	Params       json.RawMessage `json:"params,omitempty"`
	ApprovalKind ApprovalKind    `json:"approval_kind"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Status       RequestStatus   `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        *ProviderError  `json:"error,omitempty"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
}

// SitePermission records what an origin has been granted on one chain kind.
type SitePermission struct {
	Origin       string    `json:"origin"`
	ChainKind    ChainKind `json:"chain_kind"`
	Accounts     []string  `json:"accounts"`
	Chains       []string  `json:"chains"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Remember     bool      `json:"remember"`
	Label        string    `json:"label,omitempty"`
}

// PermissionKey is the unique store key for an (origin, chainKind) pair.
func PermissionKey(origin string, kind ChainKind) string {
	return origin + ":" + string(kind)
}

// WarningLevel grades an advisory finding.
type WarningLevel string

const (
	WarnInfo    WarningLevel = "info"
	WarnCaution WarningLevel = "caution"
	WarnDanger  WarningLevel = "danger"
)

// Warning is advisory only: it informs the human decision and never
// blocks an operation on its own.
type Warning struct {
	Level       WarningLevel `json:"level"`
	Code        string       `json:"code"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
}

// RiskLevel is the aggregate risk of a decoded payload.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)
