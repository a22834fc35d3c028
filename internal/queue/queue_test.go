package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

func newTestQueue(t *testing.T, cfg Config) *Queue {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, cfg)
}

func connectRequest() model.NormalizedRequest {
	return model.NormalizedRequest{
		ChainKind: model.ChainEVM,
		Method:    "eth_requestAccounts",
		Origin:    "https://dapp.example",
		TabRef:    "tab-1",
	}
}

func TestEnqueueClassifies(t *testing.T) {
	q := newTestQueue(t, Config{})

	req, err := q.Enqueue(connectRequest())
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if req.ApprovalKind != model.ApprovalConnect {
		t.Errorf("expected connect kind, got %s", req.ApprovalKind)
	}
	if req.Status != model.StatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if req.ID == "" || req.Nonce == "" {
		t.Error("id and nonce must be assigned")
	}
	if !req.ExpiresAt.After(req.CreatedAt) {
		t.Error("expiresAt must be after createdAt")
	}
}

func TestEnqueueUnknownMethod(t *testing.T) {
	q := newTestQueue(t, Config{})
	nr := connectRequest()
	nr.Method = "eth_mine"
	_, err := q.Enqueue(nr)
	pe := model.AsProviderError(err)
	if pe == nil || pe.Code != model.CodeMethodNotFound {
		t.Errorf("expected method-not-found, got %v", err)
	}
}

func TestEnqueueReadOnlyMethod(t *testing.T) {
	q := newTestQueue(t, Config{})
	nr := connectRequest()
	nr.Method = "eth_chainId"
	_, err := q.Enqueue(nr)
	pe := model.AsProviderError(err)
	if pe == nil || pe.Code != model.CodeInvalidRequest {
		t.Errorf("expected invalid-request, got %v", err)
	}
}

func TestSingleTerminalResolution(t *testing.T) {
	q := newTestQueue(t, Config{})
	req, _ := q.Enqueue(connectRequest())

	if err := q.Approve(req.ID, json.RawMessage(`["0xabc"]`)); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// Every later transition is a silent no-op.
	if err := q.Reject(req.ID, nil); err != nil {
		t.Errorf("Reject after approve must be a no-op, got %v", err)
	}
	if err := q.Cancel(req.ID); err != nil {
		t.Errorf("Cancel after approve must be a no-op, got %v", err)
	}
	if err := q.Expire(req.ID); err != nil {
		t.Errorf("Expire after approve must be a no-op, got %v", err)
	}
	if err := q.Approve(req.ID, json.RawMessage(`["0xother"]`)); err != nil {
		t.Errorf("second Approve must be a no-op, got %v", err)
	}

	got, ok, _ := q.Get(req.ID)
	if !ok || got.Status != model.StatusApproved {
		t.Fatalf("expected approved, got %+v", got)
	}
	if string(got.Result) != `["0xabc"]` {
		t.Errorf("first transition must win, got %s", got.Result)
	}
}

func TestRejectCarriesStructuredError(t *testing.T) {
	q := newTestQueue(t, Config{})
	req, _ := q.Enqueue(connectRequest())

	q.Reject(req.ID, model.NewProviderError(model.CodeUserRejected, "user closed approval window"))

	got, _, _ := q.Get(req.ID)
	if got.Status != model.StatusRejected {
		t.Fatalf("expected rejected, got %s", got.Status)
	}
	if got.Error == nil || got.Error.Code != model.CodeUserRejected ||
		got.Error.Message != "user closed approval window" {
		t.Errorf("unexpected error: %+v", got.Error)
	}
}

func TestAwaitReturnsApproval(t *testing.T) {
	q := newTestQueue(t, Config{PollInterval: 5 * time.Millisecond, MaxPolls: 200})
	req, _ := q.Enqueue(connectRequest())

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Approve(req.ID, json.RawMessage(`["0xabc"]`))
	}()

	result, err := q.Await(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if string(result) != `["0xabc"]` {
		t.Errorf("unexpected result: %s", result)
	}
}

func TestAwaitReturnsRejection(t *testing.T) {
	q := newTestQueue(t, Config{PollInterval: 5 * time.Millisecond, MaxPolls: 200})
	req, _ := q.Enqueue(connectRequest())

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Reject(req.ID, model.NewProviderError(model.CodeUserRejected, ""))
	}()

	_, err := q.Await(context.Background(), req.ID)
	pe := model.AsProviderError(err)
	if pe == nil || pe.Code != model.CodeUserRejected {
		t.Errorf("expected user-rejected, got %v", err)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	q := newTestQueue(t, Config{PollInterval: time.Millisecond, MaxPolls: 5})
	req, _ := q.Enqueue(connectRequest())

	_, err := q.Await(context.Background(), req.ID)
	pe := model.AsProviderError(err)
	if pe == nil || pe.Code != model.CodeInternal {
		t.Errorf("expected internal timeout error, got %v", err)
	}

	// The exhausted poll loop drives the record terminal.
	got, _, _ := q.Get(req.ID)
	if got.Status != model.StatusExpired {
		t.Errorf("expected expired, got %s", got.Status)
	}
}

func TestAwaitSurvivesQueueRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	db, err := storage.Open(path)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	q1 := New(db, Config{PollInterval: 5 * time.Millisecond, MaxPolls: 200})
	req, _ := q1.Enqueue(connectRequest())

	// A second queue instance over the same storage stands in for a
	// restarted process: it resolves, the first instance observes.
	q2 := New(db, Config{PollInterval: 5 * time.Millisecond, MaxPolls: 200})
	go func() {
		time.Sleep(20 * time.Millisecond)
		q2.Approve(req.ID, json.RawMessage(`"done"`))
	}()

	result, err := q1.Await(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if string(result) != `"done"` {
		t.Errorf("unexpected result: %s", result)
	}
	db.Close()
}

func TestSweepExpiresOverdue(t *testing.T) {
	q := newTestQueue(t, Config{Timeout: time.Minute})
	req, _ := q.Enqueue(connectRequest())
	q.cancelTimer(req.ID)

	q.clock = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	expired, pruned, err := q.Sweep()
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if expired != 1 || pruned != 0 {
		t.Errorf("expected (1, 0), got (%d, %d)", expired, pruned)
	}

	got, _, _ := q.Get(req.ID)
	if got.Status != model.StatusExpired {
		t.Errorf("expected expired, got %s", got.Status)
	}
}

func TestSweepPrunesOldTerminal(t *testing.T) {
	q := newTestQueue(t, Config{PruneGrace: 30 * time.Second})
	req, _ := q.Enqueue(connectRequest())
	q.Approve(req.ID, nil)

	q.clock = func() time.Time { return time.Now().UTC().Add(time.Minute) }
	_, pruned, err := q.Sweep()
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned, got %d", pruned)
	}
	if _, ok, _ := q.Get(req.ID); ok {
		t.Error("terminal record should be pruned after grace")
	}
}

func TestSweepKeepsRecentTerminal(t *testing.T) {
	q := newTestQueue(t, Config{PruneGrace: 30 * time.Second})
	req, _ := q.Enqueue(connectRequest())
	q.Approve(req.ID, nil)

	_, pruned, _ := q.Sweep()
	if pruned != 0 {
		t.Errorf("record inside grace window must survive, pruned=%d", pruned)
	}
}

func TestOnTabClosed(t *testing.T) {
	q := newTestQueue(t, Config{PollInterval: 5 * time.Millisecond, MaxPolls: 200})

	a, _ := q.Enqueue(connectRequest())
	other := connectRequest()
	other.TabRef = "tab-2"
	b, _ := q.Enqueue(other)

	done := make(chan error, 1)
	go func() {
		_, err := q.Await(context.Background(), a.ID)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := q.OnTabClosed("tab-1"); err != nil {
		t.Fatalf("OnTabClosed failed: %v", err)
	}

	err := <-done
	pe := model.AsProviderError(err)
	if pe == nil || pe.Code != model.CodeUserRejected {
		t.Errorf("awaiting caller must see the cancellation, got %v", err)
	}

	got, _, _ := q.Get(a.ID)
	if got.Status != model.StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
	gotB, _, _ := q.Get(b.ID)
	if gotB.Status != model.StatusPending {
		t.Errorf("other tab's request must stay pending, got %s", gotB.Status)
	}
}

func TestOnWalletLocked(t *testing.T) {
	q := newTestQueue(t, Config{})
	a, _ := q.Enqueue(connectRequest())
	b, _ := q.Enqueue(connectRequest())

	if err := q.OnWalletLocked(); err != nil {
		t.Fatalf("OnWalletLocked failed: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		got, _, _ := q.Get(id)
		if got.Status != model.StatusRejected {
			t.Errorf("expected rejected, got %s", got.Status)
		}
		if got.Error == nil || got.Error.Code != model.CodeUnauthorized {
			t.Errorf("expected unauthorized, got %+v", got.Error)
		}
	}
}

func TestExpiryTimerFires(t *testing.T) {
	q := newTestQueue(t, Config{Timeout: 30 * time.Millisecond})
	req, _ := q.Enqueue(connectRequest())

	time.Sleep(80 * time.Millisecond)
	got, _, _ := q.Get(req.ID)
	if got.Status != model.StatusExpired {
		t.Errorf("expiry timer should have fired, got %s", got.Status)
	}
}

func TestPendingOrder(t *testing.T) {
	q := newTestQueue(t, Config{})
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		offset := time.Duration(3-i) * time.Second
		q.clock = func() time.Time { return base.Add(-offset) }
		q.Enqueue(connectRequest())
	}

	pending, err := q.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}
	for i := 1; i < len(pending); i++ {
		if pending[i].CreatedAt.Before(pending[i-1].CreatedAt) {
			t.Error("pending must be ordered oldest first")
		}
	}
}
