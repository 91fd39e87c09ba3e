package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verify reads the run log and checks sequence numbers and the hash chain.
// It returns the number of entries checked, or an error describing the
// first violation. An empty log is valid.
func Verify(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read run log: %w", err)
	}

	prev := genesisHash()
	lines := splitLines(data)
	for i, line := range lines {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return i, fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if want := uint64(i) + 1; e.Seq != want {
			return i, fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, want, e.Seq)
		}
		if e.PrevHash != prev {
			return i, fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", i+1, short(prev), short(e.PrevHash))
		}
		if h := computeHash(e); e.Hash != h {
			return i, fmt.Errorf("line %d: hash mismatch: expected %s, got %s", i+1, short(h), short(e.Hash))
		}
		prev = e.Hash
	}
	return len(lines), nil
}

// Tail returns the last n entries from the run log. Lines that fail to
// parse are skipped.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}

	lines := splitLines(data)
	if n < 0 || n > len(lines) {
		n = len(lines)
	}

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func short(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}
