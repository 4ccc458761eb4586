package application_test

import (
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

type MockRepo struct {
	Doc       *planning.Document
	Saves     int
	SaveError error
	LoadError error
}

func (m *MockRepo) LoadPlan() (*planning.Document, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	cp := *m.Doc
	return &cp, nil
}

func (m *MockRepo) SavePlan(doc *planning.Document) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	doc.Version++
	cp := *doc
	m.Doc = &cp
	m.Saves++
	return nil
}

type MockJournal struct {
	Entries []*storage.JournalEntry
}

func (m *MockJournal) Append(e *storage.JournalEntry) error {
	m.Entries = append(m.Entries, e)
	return nil
}
