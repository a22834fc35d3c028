// Package queue is the durable request queue that turns an asynchronous
// human decision into an awaitable result. Every record lives in the
// session region of durable storage, so any process instance, old or
// freshly restarted, converges on the same answer by re-reading state.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

const (
	recordKey     = "request_queue"
	recordVersion = 1
)

// Config tunes queue timing.
type Config struct {
	Timeout       time.Duration // pending request lifetime
	PollInterval  time.Duration // Await re-read interval
	MaxPolls      int           // Await iteration cap
	PruneGrace    time.Duration // terminal record retention
	SweepInterval time.Duration // housekeeping period
}

// DefaultConfig matches the provider-facing timeout contract: requests
// expire after five minutes, and Await covers that same window.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Minute,
		PollInterval:  100 * time.Millisecond,
		MaxPolls:      3000,
		PruneGrace:    30 * time.Second,
		SweepInterval: time.Minute,
	}
}

// Queue persists pending requests and drives their state machine.
type Queue struct {
	db    *storage.Store
	cfg   Config
	mu    sync.Mutex
	clock func() time.Time

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

type record struct {
	Requests map[string]model.QueuedRequest `json:"requests"`
}

// New creates a queue over the given durable storage.
func New(db *storage.Store, cfg Config) *Queue {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 3000
	}
	if cfg.PruneGrace <= 0 {
		cfg.PruneGrace = 30 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Queue{
		db:     db,
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
		timers: map[string]*time.Timer{},
	}
}

func (q *Queue) load() (record, error) {
	rec := record{Requests: map[string]model.QueuedRequest{}}
	if _, err := q.db.Get(storage.RegionSession, recordKey, recordVersion, &rec); err != nil {
		return rec, err
	}
	if rec.Requests == nil {
		rec.Requests = map[string]model.QueuedRequest{}
	}
	return rec, nil
}

func (q *Queue) save(rec record) error {
	return q.db.Put(storage.RegionSession, recordKey, recordVersion, rec)
}

// Enqueue persists a new pending request and schedules its expiry
// timer. The approval kind comes from the method classification table;
// methods the table does not know are rejected with method-not-found,
// and methods that need no approval with invalid-request.
func (q *Queue) Enqueue(nr model.NormalizedRequest) (model.QueuedRequest, error) {
	c, ok := model.ClassifyMethod(nr.Method, nr.ChainKind)
	if !ok {
		return model.QueuedRequest{}, model.NewProviderError(model.CodeMethodNotFound, "")
	}
	if !c.RequiresApproval {
		return model.QueuedRequest{}, model.NewProviderError(model.CodeInvalidRequest,
			"method does not require approval")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load()
	if err != nil {
		return model.QueuedRequest{}, err
	}

	now := q.clock()
	nonce := nr.Nonce
	if nonce == "" {
		nonce = model.NewNonce()
	}
	req := model.QueuedRequest{
		ID:           model.NewID("req"),
		Nonce:        nonce,
		Origin:       nr.Origin,
		TabRef:       nr.TabRef,
		ChainKind:    nr.ChainKind,
		Method:       nr.Method,
		Params:       nr.Params,
		ApprovalKind: c.Kind,
		CreatedAt:    now,
		ExpiresAt:    now.Add(q.cfg.Timeout),
		Status:       model.StatusPending,
	}

	rec.Requests[req.ID] = req
	if err := q.save(rec); err != nil {
		return model.QueuedRequest{}, err
	}

	q.scheduleExpiry(req.ID, q.cfg.Timeout)
	return req, nil
}

func (q *Queue) scheduleExpiry(id string, after time.Duration) {
	q.timerMu.Lock()
	defer q.timerMu.Unlock()
	q.timers[id] = time.AfterFunc(after, func() { q.Expire(id) })
}

func (q *Queue) cancelTimer(id string) {
	q.timerMu.Lock()
	defer q.timerMu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
}

// transition is the guarded read-modify-write behind every terminal
// state change. If the record is missing or no longer pending the call
// is a silent no-op, which makes each transition idempotent and
// enforces single terminal resolution.
func (q *Queue) transition(id string, mutate func(*model.QueuedRequest)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load()
	if err != nil {
		return err
	}
	req, ok := rec.Requests[id]
	if !ok || req.Status != model.StatusPending {
		return nil
	}

	mutate(&req)
	now := q.clock()
	req.ResolvedAt = &now
	rec.Requests[id] = req
	if err := q.save(rec); err != nil {
		return err
	}

	q.cancelTimer(id)
	return nil
}

// Approve resolves a pending request with a result.
func (q *Queue) Approve(id string, result json.RawMessage) error {
	return q.transition(id, func(r *model.QueuedRequest) {
		r.Status = model.StatusApproved
		r.Result = result
	})
}

// Reject resolves a pending request with a structured error.
func (q *Queue) Reject(id string, perr *model.ProviderError) error {
	if perr == nil {
		perr = model.NewProviderError(model.CodeUserRejected, "")
	}
	return q.transition(id, func(r *model.QueuedRequest) {
		r.Status = model.StatusRejected
		r.Error = perr
	})
}

// Cancel resolves a pending request as cancelled.
func (q *Queue) Cancel(id string) error {
	return q.transition(id, func(r *model.QueuedRequest) {
		r.Status = model.StatusCancelled
		r.Error = model.NewProviderError(model.CodeUserRejected, "request cancelled")
	})
}

// Expire resolves a pending request as timed out.
func (q *Queue) Expire(id string) error {
	return q.transition(id, func(r *model.QueuedRequest) {
		r.Status = model.StatusExpired
		r.Error = model.NewProviderError(model.CodeInternal, "request timed out")
	})
}

// Get reads one request from durable state.
func (q *Queue) Get(id string) (model.QueuedRequest, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load()
	if err != nil {
		return model.QueuedRequest{}, false, err
	}
	req, ok := rec.Requests[id]
	return req, ok, nil
}

// Pending returns all pending requests, oldest first.
func (q *Queue) Pending() ([]model.QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load()
	if err != nil {
		return nil, err
	}
	var out []model.QueuedRequest
	for _, req := range rec.Requests {
		if req.Status == model.StatusPending {
			out = append(out, req)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func sortByCreatedAt(reqs []model.QueuedRequest) {
	for i := 1; i < len(reqs); i++ {
		for j := i; j > 0 && reqs[j].CreatedAt.Before(reqs[j-1].CreatedAt); j-- {
			reqs[j], reqs[j-1] = reqs[j-1], reqs[j]
		}
	}
}

// Await blocks until the request reaches a terminal state, re-reading
// durable state at a fixed interval. The bounded loop is what keeps the
// queue restart-safe: no in-memory callback is involved, so a process
// that restarted mid-approval resumes watching from storage alone.
func (q *Queue) Await(ctx context.Context, id string) (json.RawMessage, error) {
	for i := 0; i < q.cfg.MaxPolls; i++ {
		req, ok, err := q.Get(id)
		if err != nil {
			return nil, model.NewProviderError(model.CodeInternal, err.Error())
		}
		if !ok {
			return nil, model.NewProviderError(model.CodeInternal, "request no longer exists")
		}
		if req.Status.Terminal() {
			return resultOf(req)
		}

		select {
		case <-ctx.Done():
			q.Cancel(id)
			return nil, model.NewProviderError(model.CodeUserRejected, "request cancelled")
		case <-time.After(q.cfg.PollInterval):
		}
	}
	q.Expire(id)
	return nil, model.NewProviderError(model.CodeInternal, "request timed out")
}

func resultOf(req model.QueuedRequest) (json.RawMessage, error) {
	switch req.Status {
	case model.StatusApproved:
		return req.Result, nil
	default:
		if req.Error != nil {
			return nil, req.Error
		}
		return nil, model.NewProviderError(model.CodeUserRejected, "")
	}
}

// Sweep expires overdue pending requests and prunes terminal records
// older than the grace window. Returns (expired, pruned).
func (q *Queue) Sweep() (int, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load()
	if err != nil {
		return 0, 0, err
	}

	now := q.clock()
	expired, pruned := 0, 0
	for id, req := range rec.Requests {
		switch {
		case req.Status == model.StatusPending && now.After(req.ExpiresAt):
			req.Status = model.StatusExpired
			req.Error = model.NewProviderError(model.CodeInternal, "request timed out")
			resolved := now
			req.ResolvedAt = &resolved
			rec.Requests[id] = req
			expired++
		case req.Status.Terminal() && req.ResolvedAt != nil &&
			now.Sub(*req.ResolvedAt) > q.cfg.PruneGrace:
			delete(rec.Requests, id)
			pruned++
		}
	}

	if expired == 0 && pruned == 0 {
		return 0, 0, nil
	}
	return expired, pruned, q.save(rec)
}

// RunSweeper runs Sweep on the configured interval until ctx ends.
func (q *Queue) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Sweep()
		}
	}
}

// OnTabClosed cancels every pending request that originated from the
// given tab.
func (q *Queue) OnTabClosed(tabRef string) error {
	ids, err := q.pendingIDs(func(r model.QueuedRequest) bool { return r.TabRef == tabRef })
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := q.Cancel(id); err != nil {
			return err
		}
	}
	return nil
}

// OnWalletLocked rejects every pending request with an unauthorized
// error.
func (q *Queue) OnWalletLocked() error {
	ids, err := q.pendingIDs(func(model.QueuedRequest) bool { return true })
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := q.Reject(id, model.NewProviderError(model.CodeUnauthorized, "wallet locked")); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) pendingIDs(match func(model.QueuedRequest) bool) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.load()
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, req := range rec.Requests {
		if req.Status == model.StatusPending && match(req) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
