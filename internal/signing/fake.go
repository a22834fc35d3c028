package signing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fake is a deterministic in-memory signer for tests. Signatures are
// content hashes, so assertions can recompute them. Err, when set,
// is returned from every call.
type Fake struct {
	mu    sync.Mutex
	Err   error
	calls []Request
}

// Calls returns every request the fake has seen, in order.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) record(req Request) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
}

func (f *Fake) sign(req Request) string {
	h := sha256.Sum256(append([]byte(req.Account+"|"), req.Payload...))
	return "0x" + hex.EncodeToString(h[:])
}

func (f *Fake) SignMessage(_ context.Context, req Request) (string, error) {
	f.record(req)
	if f.Err != nil {
		return "", f.Err
	}
	return f.sign(req), nil
}

func (f *Fake) SignTransaction(_ context.Context, req Request) (string, error) {
	f.record(req)
	if f.Err != nil {
		return "", f.Err
	}
	return f.sign(req), nil
}

func (f *Fake) SignBatch(_ context.Context, reqs []Request) ([]string, error) {
	sigs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		f.record(req)
		if f.Err != nil {
			return nil, f.Err
		}
		sigs = append(sigs, f.sign(req))
	}
	return sigs, nil
}
