package audit

import "time"

// Entry is one recorded pipeline run.
type Entry struct {
	Seq      uint64     `json:"seq"`
	Time     time.Time  `json:"ts"`
	PrevHash string     `json:"prev_hash"`
	Stages   [][]string `json:"stages"`           // argv of each stage after %OPT% expansion
	Stdin    string     `json:"stdin,omitempty"`  // --stdin path
	Stdout   string     `json:"stdout,omitempty"` // --stdout path
	ExitCode int        `json:"exit_code"`
	Error    string     `json:"error,omitempty"`
	Duration float64    `json:"duration_ms"`
	Cwd      string     `json:"cwd"`
	Hash     string     `json:"hash"` // SHA-256 of this entry with hash empty
}

// Record is what a caller knows about a finished run.
type Record struct {
	Stages   [][]string
	Stdin    string
	Stdout   string
	ExitCode int
	Err      error
	Duration time.Duration
	Cwd      string
}
