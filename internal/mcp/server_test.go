package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/chains"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/orchestrator"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/origins"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/permission"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/queue"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *queue.Queue) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	q := queue.New(db, queue.Config{
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     400,
	})
	perms := permission.NewStore(db, permission.Config{})
	tab, err := origins.NewTable(db)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := chains.Load("")
	if err != nil {
		t.Fatal(err)
	}
	dec, err := decode.New()
	if err != nil {
		t.Fatal(err)
	}

	orch := orchestrator.New(orchestrator.Options{
		Queue:    q,
		Perms:    perms,
		Origins:  tab,
		Registry: reg,
		Decoder:  dec,
	})
	return New(orch, q, dec), q
}

func enqueueConnect(t *testing.T, q *queue.Queue, origin string) model.QueuedRequest {
	t.Helper()
	req, err := q.Enqueue(model.NormalizedRequest{
		ChainKind: model.ChainEVM,
		Method:    "eth_requestAccounts",
		Origin:    origin,
		TabRef:    "tab-1",
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return req
}

func TestPendingListsDecodedRequests(t *testing.T) {
	s, q := newTestServer(t)
	enqueueConnect(t, q, "https://app.example")

	_, out, err := s.handlePending(context.Background(), &mcpsdk.CallToolRequest{}, PendingInput{})
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(out.Requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(out.Requests))
	}
	item := out.Requests[0]
	if item.Origin != "https://app.example" || item.Kind != "connect" {
		t.Errorf("item = %+v", item)
	}
	if !strings.Contains(item.Summary, "app.example") {
		t.Errorf("summary = %s", item.Summary)
	}
	if item.Risk != "low" {
		t.Errorf("risk = %s", item.Risk)
	}
}

func TestApproveResolvesRequest(t *testing.T) {
	s, q := newTestServer(t)
	req := enqueueConnect(t, q, "https://app.example")

	_, out, err := s.handleApprove(context.Background(), &mcpsdk.CallToolRequest{}, ApproveInput{
		ID:       req.ID,
		Accounts: []string{"0xabc"},
		Remember: true,
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if out.Status != string(model.StatusApproved) {
		t.Errorf("status = %s", out.Status)
	}

	r, ok, _ := q.Get(req.ID)
	if !ok || r.Status != model.StatusApproved {
		t.Errorf("queue status = %s", r.Status)
	}
}

func TestApproveUnknownID(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.handleApprove(context.Background(), &mcpsdk.CallToolRequest{}, ApproveInput{ID: "req-ghost"})
	if err == nil {
		t.Error("expected error for unknown id")
	}
	_, _, err = s.handleApprove(context.Background(), &mcpsdk.CallToolRequest{}, ApproveInput{})
	if err == nil {
		t.Error("expected error for missing id")
	}
}

func TestRejectResolvesRequest(t *testing.T) {
	s, q := newTestServer(t)
	req := enqueueConnect(t, q, "https://app.example")

	_, out, err := s.handleReject(context.Background(), &mcpsdk.CallToolRequest{}, RejectInput{
		ID:     req.ID,
		Reason: "suspicious site",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if out.Status != string(model.StatusRejected) {
		t.Errorf("status = %s", out.Status)
	}

	r, _, _ := q.Get(req.ID)
	if r.Status != model.StatusRejected || r.Error == nil || r.Error.Message != "suspicious site" {
		t.Errorf("queue record = %+v", r)
	}
}

func TestDecodeTool(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleDecode(context.Background(), &mcpsdk.CallToolRequest{}, DecodeInput{
		To:      "0x1111111111111111111111111111111111111111",
		Data:    "0x095ea7b3000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		ChainID: "0x1",
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Kind != "approval" {
		t.Errorf("kind = %s", out.Kind)
	}
	if !strings.Contains(out.Summary, "UNLIMITED") {
		t.Errorf("summary = %s", out.Summary)
	}
	if out.Risk != "high" {
		t.Errorf("risk = %s", out.Risk)
	}
}
