package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// ReadResult holds the entries matched by a log read plus per-decision
// counts for the footer.
type ReadResult struct {
	Entries  []Entry        `json:"entries"`
	Counts   map[string]int `json:"counts"`
	HighRisk int            `json:"high_risk"`
}

// Read loads a decision log, optionally filtered by origin. A missing
// file reads as empty rather than erroring, so the CLI can run before
// the first decision lands.
func Read(path, origin string) (*ReadResult, error) {
	result := &ReadResult{Counts: map[string]int{}}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("audit: parse line %d: %w", lineNum, err)
		}
		if origin != "" && entry.Origin != origin {
			continue
		}
		result.Entries = append(result.Entries, entry)
		result.Counts[entry.Decision]++
		if entry.Risk == "high" {
			result.HighRisk++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}
	return result, nil
}

// FormatTimeline renders a ReadResult as a human-readable text
// timeline.
func FormatTimeline(result *ReadResult) string {
	if len(result.Entries) == 0 {
		return "No decisions recorded.\n"
	}

	var b strings.Builder
	b.WriteString(separator + "\n")
	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		decision := strings.ToUpper(e.Decision)
		origin := truncate(e.Origin, 28)
		method := truncate(e.Method, 24)

		tag := ""
		if e.Risk == "high" {
			tag = "  [high-risk]"
		}
		b.WriteString(fmt.Sprintf("%-10s %-9s %-5s %-28s %-24s%s\n",
			ts, decision, e.ChainKind, origin, method, tag))
	}
	b.WriteString(separator + "\n")
	b.WriteString(formatCounts(result))
	return b.String()
}

// FormatJSON renders a ReadResult as indented JSON.
func FormatJSON(result *ReadResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit result: %w", err)
	}
	return string(data), nil
}

func formatCounts(result *ReadResult) string {
	parts := []string{}
	for _, decision := range []string{"approved", "rejected", "expired", "cancelled"} {
		if n := result.Counts[decision]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, decision))
		}
	}
	line := fmt.Sprintf("Summary: %s", strings.Join(parts, ", "))
	if result.HighRisk > 0 {
		line += fmt.Sprintf(" | %d high-risk", result.HighRisk)
	}
	return line + "\n"
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
