package audit

// TimestampFormat is the wire format for entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one line in the hash-chained JSONL decision log. All fields
// are flat (no map[string]any) to guarantee deterministic json.Marshal
// field order for reproducible hashing.
type Entry struct {
	Timestamp    string `json:"ts"`
	RequestID    string `json:"request_id"`
	Origin       string `json:"origin"`
	ChainKind    string `json:"chain_kind"`
	Method       string `json:"method"`
	ApprovalKind string `json:"approval_kind"`
	Decision     string `json:"decision"`
	Risk         string `json:"risk"`
	Reason       string `json:"reason,omitempty"`
	PrevHash     string `json:"prev_hash"`
}
