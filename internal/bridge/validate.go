// Package bridge is the untrusted boundary of the engine. It accepts
// wire envelopes from page connections, validates their provenance,
// correlates requests with responses through single-use nonces, and
// relays host events back out.
package bridge

import (
	"fmt"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Validate checks an inbound envelope against the verified transport
// origin. A failure means the envelope is dropped silently; the error
// is for the operator log only, never echoed to the page.
func Validate(env *model.Envelope, actualOrigin string) error {
	if env.ID == "" {
		return fmt.Errorf("envelope missing id")
	}
	if env.Kind != model.MsgRequest {
		return fmt.Errorf("envelope kind %q is not a request", env.Kind)
	}
	// Only the page tag is acceptable from a page connection. An
	// envelope claiming a privileged tag is a spoofing attempt.
	if env.Source != model.SourcePage {
		return fmt.Errorf("envelope claims source %q from a page connection", env.Source)
	}
	if env.Origin != actualOrigin {
		return fmt.Errorf("declared origin %q does not match connection origin %q", env.Origin, actualOrigin)
	}
	if _, ok := model.ParseChainKind(string(env.ChainKind)); !ok {
		return fmt.Errorf("unknown chain kind %q", env.ChainKind)
	}
	return nil
}
