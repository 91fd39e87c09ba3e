package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const genesisInput = "invoke-genesis"

// Logger is an append-only, hash-chained run log writer.
type Logger struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
}

// NewLogger opens or creates a run log at the given path.
// It reads the last entry to resume the hash chain.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}

	l := &Logger{
		path:     path,
		prevHash: genesisHash(),
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	if lines := splitLines(data); len(lines) > 0 {
		var last Entry
		if err := json.Unmarshal(lines[len(lines)-1], &last); err != nil {
			return nil, fmt.Errorf("run log %s: last entry: %w", path, err)
		}
		l.seq = last.Seq
		l.prevHash = last.Hash
	}

	return l, nil
}

// Log appends an entry for r.
func (l *Logger) Log(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Seq:      l.seq + 1,
		Time:     time.Now().UTC(),
		PrevHash: l.prevHash,
		Stages:   r.Stages,
		Stdin:    r.Stdin,
		Stdout:   r.Stdout,
		ExitCode: r.ExitCode,
		Duration: float64(r.Duration.Microseconds()) / 1000.0,
		Cwd:      r.Cwd,
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}
	entry.Hash = computeHash(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal run entry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write run entry: %w", err)
	}

	// Only advance the chain once the entry is on disk.
	l.seq = entry.Seq
	l.prevHash = entry.Hash
	return nil
}

// Path returns the run log file path.
func (l *Logger) Path() string {
	return l.path
}

func genesisHash() string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(genesisInput)))
}

func computeHash(e Entry) string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
