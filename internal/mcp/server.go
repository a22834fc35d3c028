// Package mcp serves the approval surface over the Model Context
// Protocol on stdio. The tools list pending requests with their decoded
// risk views and carry the human verdict back into the orchestrator.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/orchestrator"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/queue"
)

// Server wraps the MCP SDK server around the approval workflow.
type Server struct {
	mcpServer *mcpsdk.Server
	orch      *orchestrator.Orchestrator
	queue     *queue.Queue
	decoder   *decode.Decoder
}

// New creates an MCP approval surface over an orchestrator.
func New(orch *orchestrator.Orchestrator, q *queue.Queue, dec *decode.Decoder) *Server {
	s := &Server{
		orch:    orch,
		queue:   q,
		decoder: dec,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "walletguard",
			Version: "0.1.0",
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds the approval-surface tools.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wallet_pending",
		Description: "List pending wallet requests with decoded summaries and risk warnings.",
	}, s.handlePending)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wallet_approve",
		Description: "Approve a pending wallet request. For connect requests, optionally pass the accounts to expose and whether to remember the site.",
	}, s.handleApprove)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wallet_reject",
		Description: "Reject a pending wallet request with an optional reason.",
	}, s.handleReject)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wallet_decode",
		Description: "Decode a transaction payload without queueing it: shows the call classification, parameters, and risk warnings.",
	}, s.handleDecode)
}
