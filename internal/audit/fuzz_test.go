package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func FuzzVerify(f *testing.F) {
	// Seed with a valid 3-entry chain.
	validLog := filepath.Join(f.TempDir(), "valid.jsonl")
	log, err := Open(validLog)
	if err != nil {
		f.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		log.Record(Entry{
			RequestID:    "req-fuzz",
			Origin:       "https://app.example",
			ChainKind:    "evm",
			Method:       "eth_sendTransaction",
			ApprovalKind: "transaction",
			Decision:     "approved",
			Risk:         "low",
		})
	}
	log.Close()
	validData, _ := os.ReadFile(validLog)
	f.Add(validData)

	// Empty log.
	f.Add([]byte{})

	// Well-formed JSON that is not a chain entry.
	f.Add([]byte(`{"not":"a valid entry"}` + "\n"))

	// Not JSON at all.
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "fuzz.jsonl")
		os.WriteFile(path, data, 0o644)

		// Must not panic; any verdict is acceptable.
		Verify(path)
	})
}
