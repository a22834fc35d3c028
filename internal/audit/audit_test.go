package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testEntry(id, origin, decision string) Entry {
	return Entry{
		RequestID:    id,
		Origin:       origin,
		ChainKind:    "evm",
		Method:       "eth_sendTransaction",
		ApprovalKind: "transaction",
		Decision:     decision,
		Risk:         "low",
	}
}

func TestRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Record(testEntry("req-1", "https://app.example", "approved")); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain invalid: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 3 {
		t.Errorf("lines = %d, want 3", result.Lines)
	}
}

func TestChainSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(testEntry("req-1", "https://a.example", "approved")); err != nil {
		t.Fatal(err)
	}
	log.Close()

	log, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(testEntry("req-2", "https://b.example", "rejected")); err != nil {
		t.Fatal(err)
	}
	log.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain broken across reopen: %s", result.Error)
	}
	if result.Lines != 2 {
		t.Errorf("lines = %d, want 2", result.Lines)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	log.Record(testEntry("req-1", "https://a.example", "approved"))
	log.Record(testEntry("req-2", "https://a.example", "rejected"))
	log.Record(testEntry("req-3", "https://a.example", "expired"))
	log.Close()

	// Mutating a line with a successor breaks that successor's
	// prev_hash link.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), "rejected", "approved", 1)
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatal(err)
	}

	result := Verify(path)
	if result.Valid {
		t.Error("tampered log must not verify")
	}
}

func TestVerifyDetectsRemovedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := Open(path)
	log.Record(testEntry("req-1", "https://a.example", "approved"))
	log.Record(testEntry("req-2", "https://a.example", "rejected"))
	log.Record(testEntry("req-3", "https://a.example", "expired"))
	log.Close()

	data, _ := os.ReadFile(path)
	lines := strings.SplitN(string(data), "\n", 3)
	if err := os.WriteFile(path, []byte(lines[2]), 0o600); err != nil {
		t.Fatal(err)
	}

	result := Verify(path)
	if result.Valid {
		t.Error("log with removed lines must not verify")
	}
}

func TestReadFiltersByOrigin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := Open(path)
	log.Record(testEntry("req-1", "https://a.example", "approved"))
	log.Record(testEntry("req-2", "https://b.example", "rejected"))
	log.Record(testEntry("req-3", "https://a.example", "rejected"))
	log.Close()

	result, err := Read(path, "https://a.example")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(result.Entries))
	}
	if result.Counts["approved"] != 1 || result.Counts["rejected"] != 1 {
		t.Errorf("counts = %+v", result.Counts)
	}
}

func TestReadMissingFile(t *testing.T) {
	result, err := Read(filepath.Join(t.TempDir(), "absent.jsonl"), "")
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Error("missing file should read as empty")
	}
}

func TestFormatTimeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, _ := Open(path)
	e := testEntry("req-1", "https://app.example", "approved")
	e.Risk = "high"
	log.Record(e)
	log.Close()

	result, err := Read(path, "")
	if err != nil {
		t.Fatal(err)
	}
	out := FormatTimeline(result)
	if !strings.Contains(out, "APPROVED") {
		t.Errorf("timeline missing decision: %s", out)
	}
	if !strings.Contains(out, "[high-risk]") {
		t.Errorf("timeline missing risk tag: %s", out)
	}
	if !strings.Contains(out, "1 approved") {
		t.Errorf("timeline missing summary: %s", out)
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	out := FormatTimeline(&ReadResult{Counts: map[string]int{}})
	if !strings.Contains(out, "No decisions recorded") {
		t.Errorf("unexpected empty output: %s", out)
	}
}
