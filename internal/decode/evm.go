package decode

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// EVMTx is the raw transaction shape handed to the decoder. All fields
// are hex strings as they arrive from the page; Value and Data may be
// empty, "0x", or malformed, none of which may panic.
type EVMTx struct {
	To      string `json:"to"`
	Value   string `json:"value"`
	Data    string `json:"data"`
	ChainID string `json:"chain_id"`
}

// Dedicated selector decoders. The hex constants match the embedded
// selector table; keeping them as code constants means a damaged table
// cannot silently disable the risk warnings.
const (
	selTransfer          = "a9059cbb"
	selApprove           = "095ea7b3"
	selTransferFrom      = "23b872dd"
	selSetApprovalForAll = "a22cb465"
	selSafeTransferFrom  = "42842e0e"
)

const wordSize = 32

// unlimitedThreshold is half of the maximum 256-bit value. An approval
// amount at or above it is treated as unlimited.
var unlimitedThreshold = new(big.Int).Lsh(big.NewInt(1), 255)

// DecodeEVM decodes an EVM-style transaction payload. Results are
// cached by content.
func (d *Decoder) DecodeEVM(tx EVMTx) Result {
	key := cacheKey("evm", tx.To, tx.Value, tx.Data, tx.ChainID)
	if r, ok := d.cache.get(key); ok {
		return r
	}
	r := d.decodeEVM(tx)
	d.cache.put(key, r)
	return r
}

func (d *Decoder) decodeEVM(tx EVMTx) Result {
	data, ok := parseHexBytes(tx.Data)
	if !ok {
		return Result{
			Kind:    KindUnknown,
			Summary: "Unparseable transaction payload",
			Warnings: []model.Warning{{
				Level:       model.WarnCaution,
				Code:        "unparseable_payload",
				Title:       "Could not parse payload",
				Description: "The transaction payload is not valid hex data.",
			}},
			Risk: model.RiskMedium,
		}
	}

	if tx.To == "" {
		return d.finishEVM(Result{
			Kind:    KindContractCreation,
			Summary: "Deploy a new contract",
			Details: map[string]string{"bytecode_size": fmt.Sprintf("%d", len(data))},
			Warnings: []model.Warning{{
				Level:       model.WarnInfo,
				Code:        "contract_creation",
				Title:       "Contract deployment",
				Description: "This transaction deploys new contract code.",
			}},
		})
	}

	if len(data) < 4 {
		value := parseHexBig(tx.Value)
		return d.finishEVM(Result{
			Kind:    KindTransfer,
			Summary: fmt.Sprintf("Transfer %s native currency to %s", formatUnits(value, 18), shortAddr(tx.To)),
			Params: []Param{
				{Name: "to", Type: "address", Value: tx.To, Display: shortAddr(tx.To)},
				{Name: "value", Type: "uint256", Value: value.String(), Display: formatUnits(value, 18)},
			},
		})
	}

	selector := hex.EncodeToString(data[:4])
	args := data[4:]

	var r Result
	switch selector {
	case selTransfer:
		r = d.decodeTokenTransfer(tx, args)
	case selApprove:
		r = d.decodeApprove(tx, args)
	case selTransferFrom:
		r = d.decodeTransferFrom(tx, args)
	case selSetApprovalForAll:
		r = d.decodeSetApprovalForAll(tx, args)
	case selSafeTransferFrom:
		r = d.decodeSafeTransferFrom(tx, args)
	default:
		r = d.decodeGenericCall(tx, selector, args)
	}
	return d.finishEVM(r)
}

func (d *Decoder) finishEVM(r Result) Result {
	if r.Warnings == nil {
		r.Warnings = []model.Warning{}
	}
	if r.Risk == "" {
		r.Risk = riskFromWarnings(r.Warnings)
	}
	return r
}

func (d *Decoder) decodeTokenTransfer(tx EVMTx, args []byte) Result {
	to, ok1 := wordAddress(args, 0)
	amount, ok2 := wordBig(args, 1)
	if !ok1 || !ok2 {
		return truncatedCall(tx, "transfer")
	}
	return Result{
		Kind:    KindTokenTransfer,
		Summary: fmt.Sprintf("Transfer %s tokens to %s", amount.String(), shortAddr(to)),
		Params: []Param{
			{Name: "recipient", Type: "address", Value: to, Display: shortAddr(to)},
			{Name: "amount", Type: "uint256", Value: amount.String()},
		},
		Details: map[string]string{"token": tx.To},
	}
}

func (d *Decoder) decodeApprove(tx EVMTx, args []byte) Result {
	spender, ok1 := wordAddress(args, 0)
	amount, ok2 := wordBig(args, 1)
	if !ok1 || !ok2 {
		return truncatedCall(tx, "approve")
	}

	r := Result{
		Kind: KindApproval,
		Params: []Param{
			{Name: "spender", Type: "address", Value: spender, Display: shortAddr(spender)},
			{Name: "amount", Type: "uint256", Value: amount.String()},
		},
		Details: map[string]string{"token": tx.To},
	}

	if amount.Cmp(unlimitedThreshold) >= 0 {
		r.Summary = fmt.Sprintf("Approve UNLIMITED token spending for %s", shortAddr(spender))
		r.Warnings = append(r.Warnings, model.Warning{
			Level:       model.WarnDanger,
			Code:        "unlimited_approval",
			Title:       "Unlimited approval",
			Description: "This approval lets the spender move an unlimited amount of this token at any time.",
		})
	} else {
		r.Summary = fmt.Sprintf("Approve %s tokens for %s", amount.String(), shortAddr(spender))
	}
	return r
}

func (d *Decoder) decodeTransferFrom(tx EVMTx, args []byte) Result {
	from, ok1 := wordAddress(args, 0)
	to, ok2 := wordAddress(args, 1)
	amount, ok3 := wordBig(args, 2)
	if !ok1 || !ok2 || !ok3 {
		return truncatedCall(tx, "transferFrom")
	}
	return Result{
		Kind:    KindTokenTransfer,
		Summary: fmt.Sprintf("Transfer %s tokens from %s to %s", amount.String(), shortAddr(from), shortAddr(to)),
		Params: []Param{
			{Name: "from", Type: "address", Value: from, Display: shortAddr(from)},
			{Name: "to", Type: "address", Value: to, Display: shortAddr(to)},
			{Name: "amount", Type: "uint256", Value: amount.String()},
		},
		Details: map[string]string{"token": tx.To},
	}
}

func (d *Decoder) decodeSetApprovalForAll(tx EVMTx, args []byte) Result {
	operator, ok1 := wordAddress(args, 0)
	approvedWord, ok2 := wordBig(args, 1)
	if !ok1 || !ok2 {
		return truncatedCall(tx, "setApprovalForAll")
	}
	approved := approvedWord.Sign() != 0

	r := Result{
		Kind: KindNFTApproval,
		Params: []Param{
			{Name: "operator", Type: "address", Value: operator, Display: shortAddr(operator)},
			{Name: "approved", Type: "bool", Value: fmt.Sprintf("%v", approved)},
		},
		Details: map[string]string{"collection": tx.To},
	}
	if approved {
		r.Summary = fmt.Sprintf("Grant %s control over ALL items in this collection", shortAddr(operator))
		r.Warnings = append(r.Warnings, model.Warning{
			Level:       model.WarnDanger,
			Code:        "collection_approval",
			Title:       "Collection-wide approval",
			Description: "The operator can transfer every item you own in this collection.",
		})
	} else {
		r.Summary = fmt.Sprintf("Revoke %s's control over this collection", shortAddr(operator))
	}
	return r
}

func (d *Decoder) decodeSafeTransferFrom(tx EVMTx, args []byte) Result {
	from, ok1 := wordAddress(args, 0)
	to, ok2 := wordAddress(args, 1)
	tokenID, ok3 := wordBig(args, 2)
	if !ok1 || !ok2 || !ok3 {
		return truncatedCall(tx, "safeTransferFrom")
	}
	return Result{
		Kind:    KindNFTTransfer,
		Summary: fmt.Sprintf("Transfer NFT #%s from %s to %s", tokenID.String(), shortAddr(from), shortAddr(to)),
		Params: []Param{
			{Name: "from", Type: "address", Value: from, Display: shortAddr(from)},
			{Name: "to", Type: "address", Value: to, Display: shortAddr(to)},
			{Name: "tokenId", Type: "uint256", Value: tokenID.String()},
		},
		Details: map[string]string{"collection": tx.To},
	}
}

// decodeGenericCall handles selectors without a dedicated decoder:
// named parameter decoding when the selector table knows the
// signature, and a bare call summary otherwise.
func (d *Decoder) decodeGenericCall(tx EVMTx, selector string, args []byte) Result {
	r := Result{Kind: KindContractCall, Details: map[string]string{"selector": "0x" + selector}}

	if sig, known := d.tables.Selector(selector); known {
		r.Summary = fmt.Sprintf("Call %s on %s", sig.Signature, shortAddr(tx.To))
		for i, typ := range sig.Params {
			p := Param{Name: fmt.Sprintf("arg%d", i), Type: typ}
			switch typ {
			case "address":
				if addr, ok := wordAddress(args, i); ok {
					p.Value = addr
					p.Display = shortAddr(addr)
				}
			default:
				if v, ok := wordBig(args, i); ok {
					p.Value = v.String()
				}
			}
			r.Params = append(r.Params, p)
		}
		return r
	}

	r.Summary = fmt.Sprintf("Call unknown function 0x%s on %s", selector, shortAddr(tx.To))
	if _, verified := d.tables.KnownContract(tx.To); !verified {
		r.Warnings = append(r.Warnings, model.Warning{
			Level:       model.WarnCaution,
			Code:        "unverified_contract",
			Title:       "Unverified contract",
			Description: "The destination is not a known contract and the function is unrecognized.",
		})
	}
	return r
}

// truncatedCall covers a known selector whose argument data is shorter
// than its layout requires.
func truncatedCall(tx EVMTx, name string) Result {
	return Result{
		Kind:    KindUnknown,
		Summary: fmt.Sprintf("Malformed %s call to %s", name, shortAddr(tx.To)),
		Warnings: []model.Warning{{
			Level:       model.WarnCaution,
			Code:        "truncated_calldata",
			Title:       "Truncated call data",
			Description: "The call data is shorter than the function signature requires.",
		}},
	}
}

// parseHexBytes decodes a 0x-prefixed hex string. Empty and "0x" yield
// empty bytes; malformed input reports false instead of failing.
func parseHexBytes(s string) ([]byte, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, true
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

// parseHexBig parses a hex quantity. "", "0x", "0x0", and anything
// malformed all become zero; numeric parsing never fails upward.
func parseHexBig(s string) *big.Int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return new(big.Int)
	}
	return v
}

// wordBig reads the 32-byte word at index idx as a big-endian integer.
func wordBig(args []byte, idx int) (*big.Int, bool) {
	start := idx * wordSize
	if start+wordSize > len(args) {
		return nil, false
	}
	return new(big.Int).SetBytes(args[start : start+wordSize]), true
}

// wordAddress reads the low 20 bytes of the 32-byte word at index idx.
func wordAddress(args []byte, idx int) (string, bool) {
	start := idx * wordSize
	if start+wordSize > len(args) {
		return "", false
	}
	return "0x" + hex.EncodeToString(args[start+12:start+wordSize]), true
}

// shortAddr renders 0xAAAA…BBBB for display.
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// formatUnits renders an integer amount with the given decimal places,
// trimming trailing zeros.
func formatUnits(v *big.Int, decimals int) string {
	if v == nil || v.Sign() == 0 {
		return "0"
	}
	s := v.String()
	if decimals <= 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}
