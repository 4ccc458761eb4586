package storage

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
)

// JournalEntry records one scheduling run's net change to the plan.
// Entries are hash chained so tampering can be detected.
type JournalEntry struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	CommitID  string        `json:"commit_id"`
	Timestamp time.Time     `json:"timestamp"`
	Commits   int           `json:"commits"`
	Diff      []JournalEdit `json:"diff"`
	PrevHash  string        `json:"prev_hash"`
	Hash      string        `json:"hash"`
}

// JournalEdit is an edit as written to the journal.
type JournalEdit struct {
	Kind      edit.Kind       `json:"kind"`
	Directive directiveRecord `json:"directive"`
}

// NewJournalEdits converts a diff for the journal.
func NewJournalEdits(diff []edit.Edit) []JournalEdit {
	out := make([]JournalEdit, 0, len(diff))
	for _, e := range diff {
		out = append(out, JournalEdit{Kind: e.Kind, Directive: toDirectiveRecord(e.Directive)})
	}
	return out
}

// CalculateHash generates a deterministic SHA256 hash of the entry.
func (e *JournalEntry) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.SessionID))
	h.Write([]byte(e.CommitID))
	h.Write([]byte(e.Timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(strconv.Itoa(e.Commits)))
	for _, je := range e.Diff {
		d, err := je.Directive.toDirective()
		if err != nil {
			h.Write([]byte(string(je.Kind) + ":" + je.Directive.ID.String()))
			continue
		}
		h.Write([]byte(edit.Edit{Kind: je.Kind, Directive: d}.Key()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileCommitJournal appends journal entries to a JSON Lines file.
type FileCommitJournal struct {
	mu       sync.RWMutex
	path     string
	basePath string
	lastHash string
}

// NewFileCommitJournal creates a journal in basePath. The directory is
// created on first write.
func NewFileCommitJournal(basePath string) (*FileCommitJournal, error) {
	j := &FileCommitJournal{path: filepath.Join(basePath, JournalFile), basePath: basePath}

	last, err := j.Last()
	if err != nil {
		return nil, err
	}
	if last != nil {
		j.lastHash = last.Hash
	}
	return j, nil
}

// Append adds an entry, filling in its ID, timestamp and hashes.
func (j *FileCommitJournal) Append(entry *JournalEntry) (err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := os.MkdirAll(j.basePath, 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	entry.PrevHash = j.lastHash
	entry.Hash = entry.CalculateHash()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}

	j.lastHash = entry.Hash
	return nil
}

// LoadAll returns all entries in append order.
func (j *FileCommitJournal) LoadAll() ([]*JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.load()
}

// Last returns the most recent entry, or nil.
func (j *FileCommitJournal) Last() (*JournalEntry, error) {
	entries, err := j.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

// VerifyIntegrity checks the hash chain for tampering.
func (j *FileCommitJournal) VerifyIntegrity() ([]string, error) {
	entries, err := j.LoadAll()
	if err != nil {
		return nil, err
	}

	var violations []string
	lastHash := ""
	for i, e := range entries {
		if e.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("Entry %d (%s): PrevHash mismatch", i, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("Entry %d (%s): Hash mismatch - possible tampering", i, e.ID))
		}
		lastHash = e.Hash
	}
	return violations, nil
}

func (j *FileCommitJournal) load() ([]*JournalEntry, error) {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var result []*JournalEntry
	scanner := bufio.NewScanner(f)

	// Large diffs produce long lines.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal journal entry: %w", err)
		}
		result = append(result, &entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return result, nil
}
