package decode

import (
	"strings"
	"testing"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

func newTestDecoder(t *testing.T, opts ...Option) *Decoder {
	t.Helper()
	d, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	return d
}

// word pads a hex fragment to a 32-byte ABI word.
func word(frag string) string {
	return strings.Repeat("0", 64-len(frag)) + frag
}

const (
	spender   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	recipient = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	sender    = "cccccccccccccccccccccccccccccccccccccccc"
	token     = "0x1111111111111111111111111111111111111111"
)

func TestDecodeNativeTransfer(t *testing.T) {
	d := newTestDecoder(t)
	r := d.DecodeEVM(EVMTx{To: "0x" + recipient, Value: "0xde0b6b3a7640000", Data: "0x", ChainID: "0x1"})

	if r.Kind != KindTransfer {
		t.Fatalf("expected transfer, got %s", r.Kind)
	}
	if !strings.Contains(r.Summary, "Transfer 1 native currency") {
		t.Errorf("unexpected summary: %s", r.Summary)
	}
	if r.Risk != model.RiskLow {
		t.Errorf("plain transfer should be low risk, got %s", r.Risk)
	}
}

func TestDecodeContractCreation(t *testing.T) {
	d := newTestDecoder(t)
	r := d.DecodeEVM(EVMTx{To: "", Data: "0x6080604052", ChainID: "0x1"})
	if r.Kind != KindContractCreation {
		t.Errorf("expected contract_creation, got %s", r.Kind)
	}
}

func TestDecodeTokenTransfer(t *testing.T) {
	d := newTestDecoder(t)
	data := "0xa9059cbb" + word(recipient) + word("3e8")
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})

	if r.Kind != KindTokenTransfer {
		t.Fatalf("expected token_transfer, got %s", r.Kind)
	}
	if !strings.Contains(r.Summary, "1000 tokens") {
		t.Errorf("unexpected summary: %s", r.Summary)
	}
	if len(r.Params) != 2 || r.Params[0].Value != "0x"+recipient {
		t.Errorf("unexpected params: %+v", r.Params)
	}
}

func TestUnlimitedApprovalDetection(t *testing.T) {
	d := newTestDecoder(t)
	// amount = 2^256 - 1
	data := "0x095ea7b3" + word(spender) + strings.Repeat("f", 64)
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})

	if r.Kind != KindApproval {
		t.Fatalf("expected approval, got %s", r.Kind)
	}
	if !strings.Contains(r.Summary, "UNLIMITED") {
		t.Errorf("summary must contain UNLIMITED marker: %s", r.Summary)
	}
	found := false
	for _, w := range r.Warnings {
		if w.Code == "unlimited_approval" && w.Level == model.WarnDanger {
			found = true
		}
	}
	if !found {
		t.Errorf("expected danger-level unlimited_approval warning, got %+v", r.Warnings)
	}
	if r.Risk != model.RiskHigh {
		t.Errorf("unlimited approval must be high risk, got %s", r.Risk)
	}
}

func TestHalfMaxApprovalIsStillUnlimited(t *testing.T) {
	d := newTestDecoder(t)
	// amount = exactly 2^255
	data := "0x095ea7b3" + word(spender) + "8" + strings.Repeat("0", 63)
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})
	if !strings.Contains(r.Summary, "UNLIMITED") {
		t.Errorf("2^255 must count as unlimited: %s", r.Summary)
	}
}

func TestBoundedApproval(t *testing.T) {
	d := newTestDecoder(t)
	data := "0x095ea7b3" + word(spender) + word("64")
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})

	if strings.Contains(r.Summary, "UNLIMITED") {
		t.Errorf("bounded approval must not read unlimited: %s", r.Summary)
	}
	for _, w := range r.Warnings {
		if w.Code == "unlimited_approval" {
			t.Error("bounded approval must not warn about unlimited spending")
		}
	}
}

func TestDecodeTransferFrom(t *testing.T) {
	d := newTestDecoder(t)
	data := "0x23b872dd" + word(sender) + word(recipient) + word("a")
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})
	if r.Kind != KindTokenTransfer {
		t.Fatalf("expected token_transfer, got %s", r.Kind)
	}
	if len(r.Params) != 3 {
		t.Errorf("expected 3 params, got %d", len(r.Params))
	}
}

func TestSetApprovalForAll(t *testing.T) {
	d := newTestDecoder(t)
	data := "0xa22cb465" + word(spender) + word("1")
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})

	if r.Kind != KindNFTApproval {
		t.Fatalf("expected nft_approval, got %s", r.Kind)
	}
	if !strings.Contains(r.Summary, "ALL") {
		t.Errorf("unexpected summary: %s", r.Summary)
	}
	if r.Risk != model.RiskHigh {
		t.Errorf("collection-wide approval must be high risk, got %s", r.Risk)
	}

	// Revocation carries no danger warning.
	revoke := "0xa22cb465" + word(spender) + word("0")
	r = d.DecodeEVM(EVMTx{To: token, Data: revoke, ChainID: "0x1"})
	if r.Risk == model.RiskHigh {
		t.Errorf("revocation should not be high risk, got %s", r.Risk)
	}
}

func TestSafeTransferFrom(t *testing.T) {
	d := newTestDecoder(t)
	data := "0x42842e0e" + word(sender) + word(recipient) + word("2a")
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})
	if r.Kind != KindNFTTransfer {
		t.Fatalf("expected nft_transfer, got %s", r.Kind)
	}
	if !strings.Contains(r.Summary, "#42") {
		t.Errorf("unexpected summary: %s", r.Summary)
	}
}

func TestUnknownSelectorUnverifiedContract(t *testing.T) {
	d := newTestDecoder(t)
	r := d.DecodeEVM(EVMTx{To: "0x" + recipient, Data: "0xdeadbeef" + word("1"), ChainID: "0x1"})

	if r.Kind != KindContractCall {
		t.Fatalf("expected contract_call, got %s", r.Kind)
	}
	found := false
	for _, w := range r.Warnings {
		if w.Code == "unverified_contract" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unverified_contract warning, got %+v", r.Warnings)
	}
}

func TestUnknownSelectorKnownContract(t *testing.T) {
	d := newTestDecoder(t)
	// Seaport is in the embedded known-contract list.
	r := d.DecodeEVM(EVMTx{To: "0x00000000006c3852cbEf3e08E8dF289169EdE581", Data: "0xdeadbeef", ChainID: "0x1"})
	for _, w := range r.Warnings {
		if w.Code == "unverified_contract" {
			t.Error("known contract must not warn as unverified")
		}
	}
}

func TestKnownSelectorGenericDecode(t *testing.T) {
	d := newTestDecoder(t)
	data := "0x2e1a7d4d" + word("64") // withdraw(uint256)
	r := d.DecodeEVM(EVMTx{To: token, Data: data, ChainID: "0x1"})
	if !strings.Contains(r.Summary, "withdraw(uint256)") {
		t.Errorf("unexpected summary: %s", r.Summary)
	}
	if len(r.Params) != 1 || r.Params[0].Value != "100" {
		t.Errorf("unexpected params: %+v", r.Params)
	}
}

func TestMalformedInputsNeverPanic(t *testing.T) {
	d := newTestDecoder(t)
	inputs := []EVMTx{
		{To: token, Data: "0xzzzz", ChainID: "0x1"},
		{To: token, Data: "0xa9059cbb" + "dead", ChainID: "0x1"}, // truncated args
		{To: token, Value: "not-hex", Data: "", ChainID: ""},
		{},
		{To: token, Data: "0x095ea7b3", ChainID: "0x1"}, // selector only
	}
	for _, tx := range inputs {
		r := d.DecodeEVM(tx)
		if r.Summary == "" {
			t.Errorf("every decode must produce a summary: %+v", tx)
		}
	}
}

func TestZeroValueParsing(t *testing.T) {
	for _, s := range []string{"", "0x", "0x0"} {
		if v := parseHexBig(s); v.Sign() != 0 {
			t.Errorf("parseHexBig(%q) = %s, want 0", s, v)
		}
	}
}

func TestDecoderPurityAndCacheIdentity(t *testing.T) {
	d := newTestDecoder(t)
	tx := EVMTx{To: token, Data: "0xa9059cbb" + word(recipient) + word("3e8"), ChainID: "0x1"}

	r1 := d.DecodeEVM(tx)
	r2 := d.DecodeEVM(tx)
	if r1.Summary != r2.Summary || r1.Kind != r2.Kind {
		t.Error("repeated decode must be identical")
	}

	d.ClearCache()
	r3 := d.DecodeEVM(tx)
	if r3.Summary != r1.Summary || r3.Kind != r1.Kind || len(r3.Warnings) != len(r1.Warnings) {
		t.Error("decode after cache clear must be structurally equal")
	}
}

func TestCacheDistinguishesInputs(t *testing.T) {
	d := newTestDecoder(t)
	a := d.DecodeEVM(EVMTx{To: token, Data: "0x", Value: "0x1", ChainID: "0x1"})
	b := d.DecodeEVM(EVMTx{To: token, Data: "0x", Value: "0x2", ChainID: "0x1"})
	if a.Params[1].Value == b.Params[1].Value {
		t.Error("different values must not collide in the cache")
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := newCache(2)
	k1, k2, k3 := cacheKey("1"), cacheKey("2"), cacheKey("3")
	c.put(k1, Result{Summary: "one"})
	c.put(k2, Result{Summary: "two"})
	c.put(k3, Result{Summary: "three"})

	if _, ok := c.get(k1); ok {
		t.Error("oldest entry must be evicted")
	}
	if _, ok := c.get(k2); !ok {
		t.Error("second entry must survive")
	}
	if _, ok := c.get(k3); !ok {
		t.Error("newest entry must survive")
	}
}
