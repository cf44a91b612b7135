package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry represents a single exchange log entry.
type Entry struct {
	ID        string `json:"id"` // Operation id.
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"` // "encrypt" or "decrypt".

	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`

	Archived     bool   `json:"archived,omitempty"`
	ArchiveError string `json:"archive_error,omitempty"`

	// Decrypt-only fields.
	SignatureFingerprint string `json:"signature_fp,omitempty"`
	MatchCount           int    `json:"match_count,omitempty"`
	Authenticated        bool   `json:"authenticated,omitempty"`

	// Failure description when the operation did not succeed.
	Error string `json:"error,omitempty"`
}

// Trail appends exchange entries to a JSONL file. A nil Trail, or one with no
// directory configured, discards entries; operations never fail because
// logging failed.
type Trail struct {
	Dir string
}

// New returns a trail writing to dir, which may be empty to disable logging.
func New(dir string) *Trail {
	return &Trail{Dir: dir}
}

// Log appends an entry, filling in the id and timestamp when unset.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.Dir == "" {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	// #nosec G306 -- the exchange log should be readable by operators.
	f, err := os.OpenFile(t.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the exchange log. Returns nil when the
// log does not exist.
func (t *Trail) ReadEntries() ([]Entry, error) {
	if t == nil || t.Dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(t.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data)
}

func (t *Trail) path() string {
	return filepath.Join(t.Dir, "exchange.jsonl")
}

// ParseEntries parses JSON Lines data into entries. Malformed lines are
// silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
