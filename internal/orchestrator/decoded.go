package orchestrator

import (
	"encoding/json"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/decode"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Decoded is the risk view the approval surface renders alongside a
// pending request.
type Decoded struct {
	Summary  string          `json:"summary"`
	Risk     model.RiskLevel `json:"risk"`
	Warnings []model.Warning `json:"warnings"`
	Detail   any             `json:"detail,omitempty"`
}

type evmTxParams struct {
	To      string `json:"to"`
	Value   string `json:"value"`
	Data    string `json:"data"`
	ChainID string `json:"chainId"`
}

type ledgerTxParams struct {
	Instructions []decode.Instruction `json:"instructions"`
}

// Decode produces the surface view for a queued request. Requests that
// carry nothing decodable (connect, chain switches) get a plain
// low-risk summary.
func (o *Orchestrator) Decode(req model.QueuedRequest) *Decoded {
	switch req.ApprovalKind {
	case model.ApprovalTransaction:
		if req.ChainKind == model.ChainLedger {
			return o.decodeLedger(req)
		}
		return o.decodeEVM(req)
	case model.ApprovalSign, model.ApprovalSignMessage:
		return o.decodeMessage(req)
	case model.ApprovalConnect:
		return &Decoded{
			Summary:  "Connect to " + req.Origin,
			Risk:     model.RiskLow,
			Warnings: []model.Warning{},
		}
	case model.ApprovalSwitchChain, model.ApprovalAddChain:
		return &Decoded{
			Summary:  "Change the active network",
			Risk:     model.RiskLow,
			Warnings: []model.Warning{},
		}
	default:
		return &Decoded{Summary: req.Method, Risk: model.RiskLow, Warnings: []model.Warning{}}
	}
}

func (o *Orchestrator) decodeEVM(req model.QueuedRequest) *Decoded {
	var params []evmTxParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return unparseableView()
	}
	p := params[0]
	chainID := p.ChainID
	if chainID == "" {
		chainID = o.registry.Active(req.ChainKind).ID
	}

	r := o.decoder.DecodeEVM(decode.EVMTx{To: p.To, Value: p.Value, Data: p.Data, ChainID: chainID})
	d := &Decoded{Summary: r.Summary, Risk: r.Risk, Warnings: r.Warnings, Detail: r}

	if o.denylist != nil {
		if blocked, _ := o.denylist.IsBlockedAddress(p.To); blocked {
			d.Risk = model.RiskHigh
			d.Warnings = append(d.Warnings, model.Warning{
				Level:       model.WarnDanger,
				Code:        "blocklisted_address",
				Title:       "Destination is blocklisted",
				Description: "The destination address is on the drainer blocklist.",
			})
		}
	}
	return d
}

func (o *Orchestrator) decodeLedger(req model.QueuedRequest) *Decoded {
	var params []ledgerTxParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return unparseableView()
	}

	r := o.decoder.DecodeInstructions(params[0].Instructions)
	summary := "Ledger transaction"
	if len(r.Actions) > 0 {
		summary = r.Actions[0].Action
	}
	warnings := append([]model.Warning{}, r.Warnings...)
	for _, a := range r.Actions {
		warnings = append(warnings, a.Warnings...)
	}
	return &Decoded{Summary: summary, Risk: r.Risk, Warnings: warnings, Detail: r}
}

// decodeMessage treats the params as a structured-signing payload
// when they look like one, and as an opaque message otherwise.
func (o *Orchestrator) decodeMessage(req model.QueuedRequest) *Decoded {
	var params []json.RawMessage
	if err := json.Unmarshal(req.Params, &params); err == nil {
		for _, raw := range params {
			var probe struct {
				PrimaryType string `json:"primaryType"`
			}
			if json.Unmarshal(raw, &probe) == nil && probe.PrimaryType != "" {
				r := o.decoder.DecodeTypedData(raw)
				return &Decoded{Summary: r.Summary, Risk: r.Risk, Warnings: r.Warnings, Detail: r}
			}
			// Typed payloads often arrive as a JSON string argument.
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" && s[0] == '{' {
				r := o.decoder.DecodeTypedData([]byte(s))
				if r.ParseError == "" {
					return &Decoded{Summary: r.Summary, Risk: r.Risk, Warnings: r.Warnings, Detail: r}
				}
			}
		}
	}
	return &Decoded{
		Summary:  "Sign a message for " + req.Origin,
		Risk:     model.RiskLow,
		Warnings: []model.Warning{},
	}
}

func unparseableView() *Decoded {
	return &Decoded{
		Summary: "Unparseable transaction payload",
		Risk:    model.RiskMedium,
		Warnings: []model.Warning{{
			Level:       model.WarnCaution,
			Code:        "unparseable_payload",
			Title:       "Could not parse payload",
			Description: "The request parameters do not match the expected shape.",
		}},
	}
}
