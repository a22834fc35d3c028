// Package orchestrator routes validated requests through the full
// approval lifecycle: read-only answers, auto-approval for remembered
// connects, enqueueing, surfacing, and dispatching the human decision
// to the handler for the request's approval kind.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/audit"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/chains"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/denylist"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/origins"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/permission"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/queue"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/signing"
)

// WalletState exposes the wallet facts the orchestrator needs: whether
// the keys are unlocked and which accounts exist per chain kind.
type WalletState interface {
	Locked() bool
	Accounts(kind model.ChainKind) []string
}

// Surface is notified when a request needs a human decision. Open must
// not block; the decision arrives later through ResolveApproval.
type Surface interface {
	Open(req model.QueuedRequest, decoded *Decoded)
}

// Broadcaster relays wallet events back to connected pages.
type Broadcaster interface {
	Broadcast(origin, event string, data json.RawMessage)
}

// Decision is the human verdict on one pending request.
type Decision struct {
	Approve  bool     `json:"approve"`
	Accounts []string `json:"accounts,omitempty"`
	Remember bool     `json:"remember,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// Orchestrator wires the queue, permissions, decoder, signer, and
// surface together.
type Orchestrator struct {
	queue    *queue.Queue
	perms    *permission.Store
	origins  *origins.Table
	registry *chains.Registry
	decoder  *decode.Decoder
	signer   signing.Signer
	wallet   WalletState
	surface  Surface
	events   Broadcaster
	audit    *audit.Log
	denylist *denylist.Denylist

	// decideMu serializes decision application so the pending check and
	// the handler dispatch act as one step. Without it two racing
	// approvals for the same request would both reach the signer before
	// either records a terminal status.
	decideMu sync.Mutex
}

// Options carries the orchestrator's collaborators. Queue, Perms,
// Origins, Registry, and Decoder are required; the rest default to
// inert implementations.
type Options struct {
	Queue    *queue.Queue
	Perms    *permission.Store
	Origins  *origins.Table
	Registry *chains.Registry
	Decoder  *decode.Decoder
	Signer   signing.Signer
	Wallet   WalletState
	Surface  Surface
	Events   Broadcaster
	Audit    *audit.Log
	Denylist *denylist.Denylist
}

// New builds an orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		queue:    opts.Queue,
		perms:    opts.Perms,
		origins:  opts.Origins,
		registry: opts.Registry,
		decoder:  opts.Decoder,
		signer:   opts.Signer,
		wallet:   opts.Wallet,
		surface:  opts.Surface,
		events:   opts.Events,
		audit:    opts.Audit,
		denylist: opts.Denylist,
	}
	if o.signer == nil {
		o.signer = signing.Unavailable{}
	}
	if o.wallet == nil {
		o.wallet = alwaysUnlocked{}
	}
	if o.surface == nil {
		o.surface = noSurface{}
	}
	if o.events == nil {
		o.events = noEvents{}
	}
	return o
}

// BindEvents attaches the event broadcaster after construction. The
// bridge server handles requests through the orchestrator while the
// orchestrator broadcasts through the bridge, so one side is wired
// late, before serving starts.
func (o *Orchestrator) BindEvents(b Broadcaster) {
	if b != nil {
		o.events = b
	}
}

type alwaysUnlocked struct{}

func (alwaysUnlocked) Locked() bool                      { return false }
func (alwaysUnlocked) Accounts(model.ChainKind) []string { return nil }

type noSurface struct{}

func (noSurface) Open(model.QueuedRequest, *Decoded) {}

type noEvents struct{}

func (noEvents) Broadcast(string, string, json.RawMessage) {}

// Handle processes one normalized request end to end. Read-only
// methods answer immediately; everything else is enqueued, surfaced,
// and awaited.
func (o *Orchestrator) Handle(ctx context.Context, req model.NormalizedRequest) (json.RawMessage, error) {
	c, ok := model.ClassifyMethod(req.Method, req.ChainKind)
	if !ok {
		return nil, model.NewProviderError(model.CodeMethodNotFound, "")
	}
	if !c.RequiresApproval {
		return o.answerReadOnly(req)
	}

	// Known-phishing origins are refused outright; nothing from them
	// is worth surfacing to the user.
	if o.denylist != nil {
		if blocked, reason := o.denylist.IsBlockedOrigin(req.Origin); blocked {
			o.recordBlocked(req, reason)
			return nil, model.NewProviderError(model.CodeUnauthorized, "origin is blocked: "+reason)
		}
	}

	// A remembered connect is the one approval bypass.
	if c.Kind == model.ApprovalConnect {
		auto, err := o.perms.ShouldAutoApprove(req.Origin, req.ChainKind)
		if err != nil {
			return nil, model.NewProviderError(model.CodeInternal, err.Error())
		}
		if auto {
			return o.autoConnect(req)
		}
	}

	if o.wallet.Locked() {
		return nil, model.NewProviderError(model.CodeUnauthorized, "wallet is locked")
	}

	queued, err := o.queue.Enqueue(req)
	if err != nil {
		return nil, err
	}

	o.surface.Open(queued, o.Decode(queued))

	result, err := o.queue.Await(ctx, queued.ID)
	o.auditUnattended(queued.ID)
	return result, err
}

// autoConnect re-issues a remembered grant without surfacing.
func (o *Orchestrator) autoConnect(req model.NormalizedRequest) (json.RawMessage, error) {
	p, ok, err := o.perms.Get(req.Origin, req.ChainKind)
	if err != nil || !ok {
		return nil, model.NewProviderError(model.CodeInternal, "remembered permission disappeared")
	}
	if err := o.perms.Touch(req.Origin, req.ChainKind); err != nil {
		return nil, model.NewProviderError(model.CodeInternal, err.Error())
	}
	if req.TabRef != "" {
		if err := o.origins.Connect(req.TabRef, origins.Entry{
			Origin:    req.Origin,
			ChainKind: req.ChainKind,
			Accounts:  p.Accounts,
		}); err != nil {
			return nil, model.NewProviderError(model.CodeInternal, err.Error())
		}
	}
	return json.Marshal(p.Accounts)
}

func (o *Orchestrator) answerReadOnly(req model.NormalizedRequest) (json.RawMessage, error) {
	switch req.Method {
	case "eth_accounts", "ledger_accounts":
		p, ok, err := o.perms.Get(req.Origin, req.ChainKind)
		if err != nil {
			return nil, model.NewProviderError(model.CodeInternal, err.Error())
		}
		if !ok {
			return json.Marshal([]string{})
		}
		return json.Marshal(p.Accounts)
	case "eth_chainId", "ledger_chainId":
		return json.Marshal(o.registry.Active(req.ChainKind).ID)
	case "net_version":
		id := o.registry.Active(req.ChainKind).ID
		if v, err := strconv.ParseUint(strings.TrimPrefix(id, "0x"), 16, 64); err == nil {
			return json.Marshal(strconv.FormatUint(v, 10))
		}
		return json.Marshal(id)
	default:
		return nil, model.NewProviderError(model.CodeUnsupportedMethod, "")
	}
}

// ResolveApproval applies a human decision to a pending request. The
// decision is an input, not a transition: the handler runs first, and
// only its outcome moves the request to a terminal state.
func (o *Orchestrator) ResolveApproval(ctx context.Context, id string, d Decision) error {
	o.decideMu.Lock()
	defer o.decideMu.Unlock()

	req, ok, err := o.queue.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("request %s not found", id)
	}
	if req.Status != model.StatusPending {
		return fmt.Errorf("request %s already %s", id, req.Status)
	}

	if !d.Approve {
		perr := model.NewProviderError(model.CodeUserRejected, d.Reason)
		if err := o.queue.Reject(id, perr); err != nil {
			return err
		}
		o.record(req, string(model.StatusRejected), d.Reason)
		return nil
	}

	result, herr := o.dispatch(ctx, req, d)
	if herr != nil {
		perr := model.AsProviderError(herr)
		if err := o.queue.Reject(id, perr); err != nil {
			return err
		}
		o.record(req, string(model.StatusRejected), perr.Message)
		return nil
	}

	if err := o.queue.Approve(id, result); err != nil {
		return err
	}
	o.record(req, string(model.StatusApproved), d.Reason)
	return nil
}

// SurfaceClosed rejects every pending request because the human closed
// the approval window without deciding.
func (o *Orchestrator) SurfaceClosed() error {
	o.decideMu.Lock()
	defer o.decideMu.Unlock()

	pending, err := o.queue.Pending()
	if err != nil {
		return err
	}
	for _, req := range pending {
		perr := model.NewProviderError(model.CodeUserRejected, "user closed approval window")
		if err := o.queue.Reject(req.ID, perr); err != nil {
			return err
		}
		o.record(req, string(model.StatusRejected), "user closed approval window")
	}
	return nil
}

// OnTabClosed cancels the tab's pending requests and drops its arena
// entry, broadcasting a disconnect if the tab was connected.
func (o *Orchestrator) OnTabClosed(tabRef string) error {
	if err := o.queue.OnTabClosed(tabRef); err != nil {
		return err
	}
	entry, connected := o.origins.Get(tabRef)
	if !connected {
		return nil
	}
	if err := o.origins.Disconnect(tabRef); err != nil {
		return err
	}
	o.events.Broadcast(entry.Origin, "disconnect", nil)
	return nil
}

// OnWalletLocked rejects all pending requests as unauthorized.
func (o *Orchestrator) OnWalletLocked() error {
	return o.queue.OnWalletLocked()
}

// auditUnattended records requests that ended without a human verdict
// (expired or cancelled). Approvals and rejections are recorded where
// they happen, in ResolveApproval.
func (o *Orchestrator) auditUnattended(id string) {
	req, ok, err := o.queue.Get(id)
	if err != nil || !ok {
		return
	}
	switch req.Status {
	case model.StatusExpired, model.StatusCancelled:
		reason := ""
		if req.Error != nil {
			reason = req.Error.Message
		}
		o.record(req, string(req.Status), reason)
	}
}

func (o *Orchestrator) record(req model.QueuedRequest, decision, reason string) {
	if o.audit == nil {
		return
	}
	risk := model.RiskLow
	if d := o.Decode(req); d != nil {
		risk = d.Risk
	}
	entry := audit.Entry{
		Timestamp:    time.Now().UTC().Format(audit.TimestampFormat),
		RequestID:    req.ID,
		Origin:       req.Origin,
		ChainKind:    string(req.ChainKind),
		Method:       req.Method,
		ApprovalKind: string(req.ApprovalKind),
		Decision:     decision,
		Risk:         string(risk),
		Reason:       reason,
	}
	if err := o.audit.Record(entry); err != nil {
		fmt.Fprintf(os.Stderr, "audit write failed: %v\n", err)
	}
}

// recordBlocked audits a denylist refusal. These never reach the
// queue, so the entry is built from the raw request.
func (o *Orchestrator) recordBlocked(req model.NormalizedRequest, reason string) {
	if o.audit == nil {
		return
	}
	entry := audit.Entry{
		Timestamp: time.Now().UTC().Format(audit.TimestampFormat),
		Origin:    req.Origin,
		ChainKind: string(req.ChainKind),
		Method:    req.Method,
		Decision:  "blocked",
		Risk:      string(model.RiskHigh),
		Reason:    reason,
	}
	if err := o.audit.Record(entry); err != nil {
		fmt.Fprintf(os.Stderr, "audit write failed: %v\n", err)
	}
}
