package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/chains"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/origins"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/signing"
)

// dispatch runs the handler for an approved request. A handler error
// rejects the request; it never leaves it pending.
func (o *Orchestrator) dispatch(ctx context.Context, req model.QueuedRequest, d Decision) (json.RawMessage, error) {
	switch req.ApprovalKind {
	case model.ApprovalConnect:
		return o.handleConnect(req, d)
	case model.ApprovalSignMessage, model.ApprovalSign:
		return o.handleSign(ctx, req, o.signer.SignMessage)
	case model.ApprovalTransaction:
		if req.Method == "ledger_signAllTransactions" {
			return o.handleSignBatch(ctx, req)
		}
		return o.handleSign(ctx, req, o.signer.SignTransaction)
	case model.ApprovalSwitchChain:
		return o.handleSwitchChain(req)
	case model.ApprovalAddChain:
		return o.handleAddChain(req)
	default:
		return nil, model.NewProviderError(model.CodeInternal,
			fmt.Sprintf("no handler for approval kind %q", req.ApprovalKind))
	}
}

// handleConnect creates the permission and registers the tab in the
// connected-origin arena. An approval granting no accounts is invalid.
func (o *Orchestrator) handleConnect(req model.QueuedRequest, d Decision) (json.RawMessage, error) {
	accounts := d.Accounts
	if len(accounts) == 0 {
		accounts = o.wallet.Accounts(req.ChainKind)
	}
	if len(accounts) == 0 {
		return nil, model.NewProviderError(model.CodeInternal, "connect approved with no accounts")
	}

	if err := o.perms.Set(model.SitePermission{
		Origin:    req.Origin,
		ChainKind: req.ChainKind,
		Accounts:  accounts,
		Chains:    []string{o.registry.Active(req.ChainKind).ID},
		Remember:  d.Remember,
	}); err != nil {
		return nil, model.NewProviderError(model.CodeInternal, err.Error())
	}

	if req.TabRef != "" {
		if err := o.origins.Connect(req.TabRef, origins.Entry{
			Origin:    req.Origin,
			ChainKind: req.ChainKind,
			Accounts:  accounts,
		}); err != nil {
			return nil, model.NewProviderError(model.CodeInternal, err.Error())
		}
	}

	result, err := json.Marshal(accounts)
	if err != nil {
		return nil, model.NewProviderError(model.CodeInternal, err.Error())
	}
	o.events.Broadcast(req.Origin, "accountsChanged", result)
	return result, nil
}

type signFunc func(context.Context, signing.Request) (string, error)

// handleSign forwards the payload to the signing service and passes
// its result or error through verbatim.
func (o *Orchestrator) handleSign(ctx context.Context, req model.QueuedRequest, sign signFunc) (json.RawMessage, error) {
	signature, err := sign(ctx, signing.Request{
		ChainKind: req.ChainKind,
		Account:   o.signingAccount(req),
		Payload:   req.Params,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(signature)
}

// handleSignBatch signs each serialized transaction in the params
// array with one decision covering the whole batch.
func (o *Orchestrator) handleSignBatch(ctx context.Context, req model.QueuedRequest) (json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(req.Params, &raw); err != nil || len(raw) == 0 {
		return nil, model.NewProviderError(model.CodeInvalidParams, "empty transaction batch")
	}

	account := o.signingAccount(req)
	batch := make([]signing.Request, 0, len(raw))
	for _, tx := range raw {
		batch = append(batch, signing.Request{
			ChainKind: req.ChainKind,
			Account:   account,
			Payload:   tx,
		})
	}
	signatures, err := o.signer.SignBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	return json.Marshal(signatures)
}

// signingAccount picks the account a signature is made with: the first
// account granted to the origin, else the wallet's first account.
func (o *Orchestrator) signingAccount(req model.QueuedRequest) string {
	if p, ok, err := o.perms.Get(req.Origin, req.ChainKind); err == nil && ok && len(p.Accounts) > 0 {
		return p.Accounts[0]
	}
	if accounts := o.wallet.Accounts(req.ChainKind); len(accounts) > 0 {
		return accounts[0]
	}
	return ""
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

func (o *Orchestrator) handleSwitchChain(req model.QueuedRequest) (json.RawMessage, error) {
	var params []switchChainParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 || params[0].ChainID == "" {
		return nil, model.NewProviderError(model.CodeInvalidParams, "missing chainId")
	}

	c, err := o.registry.Switch(params[0].ChainID, req.ChainKind)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(c.ID)
	for _, origin := range o.origins.OriginsForChain(req.ChainKind) {
		o.events.Broadcast(origin, "chainChanged", data)
	}
	return json.RawMessage("null"), nil
}

type addChainParams struct {
	ChainID        string   `json:"chainId"`
	ChainName      string   `json:"chainName"`
	RPCURLs        []string `json:"rpcUrls"`
	NativeCurrency struct {
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"nativeCurrency"`
}

func (o *Orchestrator) handleAddChain(req model.QueuedRequest) (json.RawMessage, error) {
	var params []addChainParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return nil, model.NewProviderError(model.CodeInvalidParams, "missing chain definition")
	}
	p := params[0]

	// Re-adding a known chain succeeds as a no-op, matching how pages
	// probe before switching.
	if _, exists := o.registry.Get(p.ChainID, req.ChainKind); exists {
		return json.RawMessage("null"), nil
	}

	c := chains.Chain{
		ID:       p.ChainID,
		Kind:     req.ChainKind,
		Name:     p.ChainName,
		Symbol:   p.NativeCurrency.Symbol,
		Decimals: p.NativeCurrency.Decimals,
	}
	if len(p.RPCURLs) > 0 {
		c.RPCURL = p.RPCURLs[0]
	}
	if err := o.registry.Add(c); err != nil {
		return nil, err
	}
	return json.RawMessage("null"), nil
}
