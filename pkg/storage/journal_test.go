package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
)

func TestCommitJournal_AppendAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ChronoplanDir)
	journal, err := NewFileCommitJournal(dir)
	if err != nil {
		t.Fatal(err)
	}

	doc := sampleDocument()
	entries := []*JournalEntry{
		{SessionID: "s1", CommitID: "c1", Commits: 1, Diff: NewJournalEdits([]edit.Edit{edit.Create(doc.Directives[0])})},
		{SessionID: "s2", CommitID: "c2", Commits: 2, Diff: NewJournalEdits([]edit.Edit{
			edit.Create(doc.Directives[1]),
			edit.Delete(doc.Directives[0]),
		})},
	}
	for _, e := range entries {
		if err := journal.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	loaded, err := journal.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	if loaded[1].PrevHash != loaded[0].Hash {
		t.Errorf("entries are not chained")
	}
	if len(loaded[1].Diff) != 2 || loaded[1].Diff[1].Kind != edit.KindDelete {
		t.Errorf("diff not preserved: %+v", loaded[1].Diff)
	}

	violations, err := journal.VerifyIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Errorf("expected intact journal, got %v", violations)
	}

	// A reopened journal continues the chain.
	reopened, err := NewFileCommitJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	next := &JournalEntry{SessionID: "s3", CommitID: "c3", Timestamp: t0}
	if err := reopened.Append(next); err != nil {
		t.Fatal(err)
	}
	if next.PrevHash != loaded[1].Hash {
		t.Errorf("reopened journal lost the chain head")
	}
}

func TestCommitJournal_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	journal, _ := NewFileCommitJournal(dir)
	if err := journal.Append(&JournalEntry{SessionID: "s1", CommitID: "c1", Timestamp: t0}); err != nil {
		t.Fatal(err)
	}
	if err := journal.Append(&JournalEntry{SessionID: "s2", CommitID: "c2", Timestamp: t0.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, JournalFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"session_id":"s1"`, `"session_id":"mallory"`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	violations, err := journal.VerifyIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) == 0 {
		t.Error("expected tampering to be detected")
	}
}

func TestCommitJournal_EmptyWhenMissing(t *testing.T) {
	journal, err := NewFileCommitJournal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	last, err := journal.Last()
	if err != nil || last != nil {
		t.Errorf("expected no entries, got %v %v", last, err)
	}
}
