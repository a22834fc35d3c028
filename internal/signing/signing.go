// Package signing defines the boundary to the key-holding signer. The
// engine never touches key material; approved payloads cross this
// interface and results or errors come back verbatim.
package signing

import (
	"context"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Request carries one payload to sign.
type Request struct {
	ChainKind model.ChainKind `json:"chain_kind"`
	Account   string          `json:"account"`
	Payload   []byte          `json:"payload"`
}

// Signer produces signatures for approved requests. Implementations
// hold the keys; errors pass through to the requesting page unchanged.
type Signer interface {
	SignMessage(ctx context.Context, req Request) (string, error)
	SignTransaction(ctx context.Context, req Request) (string, error)
	SignBatch(ctx context.Context, reqs []Request) ([]string, error)
}

// Unavailable is the default signer when no backend is wired. Every
// call fails with an internal provider error naming the condition.
type Unavailable struct{}

func (Unavailable) SignMessage(context.Context, Request) (string, error) {
	return "", model.NewProviderError(model.CodeInternal, "no signing backend is configured")
}

func (Unavailable) SignTransaction(context.Context, Request) (string, error) {
	return "", model.NewProviderError(model.CodeInternal, "no signing backend is configured")
}

func (Unavailable) SignBatch(context.Context, []Request) ([]string, error) {
	return nil, model.NewProviderError(model.CodeInternal, "no signing backend is configured")
}
