package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/orchestrator"
)

// PendingInput is empty; the tool takes no parameters.
type PendingInput struct{}

// PendingItem is one pending request with its decoded risk view.
type PendingItem struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	ChainKind string          `json:"chain_kind"`
	Method    string          `json:"method"`
	Kind      string          `json:"approval_kind"`
	Summary   string          `json:"summary"`
	Risk      string          `json:"risk"`
	Warnings  []model.Warning `json:"warnings"`
	ExpiresIn string          `json:"expires_in"`
}

// PendingOutput lists all pending requests.
type PendingOutput struct {
	Requests []PendingItem `json:"requests"`
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	pending, err := s.queue.Pending()
	if err != nil {
		return nil, PendingOutput{}, err
	}

	out := PendingOutput{Requests: make([]PendingItem, 0, len(pending))}
	now := time.Now().UTC()
	for _, r := range pending {
		decoded := s.orch.Decode(r)
		out.Requests = append(out.Requests, PendingItem{
			ID:        r.ID,
			Origin:    r.Origin,
			ChainKind: string(r.ChainKind),
			Method:    r.Method,
			Kind:      string(r.ApprovalKind),
			Summary:   decoded.Summary,
			Risk:      string(decoded.Risk),
			Warnings:  decoded.Warnings,
			ExpiresIn: r.ExpiresAt.Sub(now).Round(time.Second).String(),
		})
	}
	return nil, out, nil
}

// ApproveInput identifies the request and, for connects, the grant.
type ApproveInput struct {
	ID       string   `json:"id" jsonschema:"pending request id"`
	Accounts []string `json:"accounts,omitempty" jsonschema:"accounts to expose on connect"`
	Remember bool     `json:"remember,omitempty" jsonschema:"auto-approve future connects from this site"`
}

// ApproveOutput confirms the resolution.
type ApproveOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleApprove(ctx context.Context, req *mcpsdk.CallToolRequest, input ApproveInput) (*mcpsdk.CallToolResult, ApproveOutput, error) {
	if input.ID == "" {
		return nil, ApproveOutput{}, fmt.Errorf("id is required")
	}
	err := s.orch.ResolveApproval(ctx, input.ID, orchestrator.Decision{
		Approve:  true,
		Accounts: input.Accounts,
		Remember: input.Remember,
	})
	if err != nil {
		return nil, ApproveOutput{}, err
	}

	// The handler may have rejected despite the approval verdict, so
	// report the state the queue actually reached.
	r, ok, err := s.queue.Get(input.ID)
	if err != nil || !ok {
		return nil, ApproveOutput{ID: input.ID, Status: "resolved"}, nil
	}
	return nil, ApproveOutput{ID: input.ID, Status: string(r.Status)}, nil
}

// RejectInput identifies the request and carries the reason shown to
// the page.
type RejectInput struct {
	ID     string `json:"id" jsonschema:"pending request id"`
	Reason string `json:"reason,omitempty" jsonschema:"reason returned to the requesting site"`
}

// RejectOutput confirms the resolution.
type RejectOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleReject(ctx context.Context, req *mcpsdk.CallToolRequest, input RejectInput) (*mcpsdk.CallToolResult, RejectOutput, error) {
	if input.ID == "" {
		return nil, RejectOutput{}, fmt.Errorf("id is required")
	}
	err := s.orch.ResolveApproval(ctx, input.ID, orchestrator.Decision{
		Approve: false,
		Reason:  input.Reason,
	})
	if err != nil {
		return nil, RejectOutput{}, err
	}
	return nil, RejectOutput{ID: input.ID, Status: string(model.StatusRejected)}, nil
}

// DecodeInput is an ad-hoc transaction payload.
type DecodeInput struct {
	To      string `json:"to,omitempty" jsonschema:"destination address, empty for contract creation"`
	Value   string `json:"value,omitempty" jsonschema:"hex value"`
	Data    string `json:"data,omitempty" jsonschema:"hex calldata"`
	ChainID string `json:"chain_id,omitempty" jsonschema:"hex chain id"`
}

// DecodeOutput is the decoded classification.
type DecodeOutput struct {
	Kind     string          `json:"kind"`
	Summary  string          `json:"summary"`
	Risk     string          `json:"risk"`
	Warnings []model.Warning `json:"warnings"`
	Params   []decode.Param  `json:"params,omitempty"`
}

func (s *Server) handleDecode(ctx context.Context, req *mcpsdk.CallToolRequest, input DecodeInput) (*mcpsdk.CallToolResult, DecodeOutput, error) {
	r := s.decoder.DecodeEVM(decode.EVMTx{
		To:      input.To,
		Value:   input.Value,
		Data:    input.Data,
		ChainID: input.ChainID,
	})
	return nil, DecodeOutput{
		Kind:     string(r.Kind),
		Summary:  r.Summary,
		Risk:     string(r.Risk),
		Warnings: r.Warnings,
		Params:   r.Params,
	}, nil
}
