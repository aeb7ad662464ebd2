// Package memory keeps every store port in process memory. It backs the test
// suites and offline CLI runs without a database.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Store bundles the in-memory repositories sharing one assignment space.
type Store struct {
	Planning     *PlanningRepo
	Events       *EventRepo
	Content      *ContentRepo
	Ledger       *Ledger
	Assignments  *AssignmentRepo
	Links        *LinkRepo
	Providers    *ProviderRepo
	Vocabularies *VocabularyRepo
}

// New returns an empty store.
func New() *Store {
	assignments := NewAssignmentRepo()
	content := NewContentRepo()
	return &Store{
		Planning:     NewPlanningRepo(assignments),
		Events:       NewEventRepo(),
		Content:      content,
		Ledger:       NewLedger(),
		Assignments:  assignments,
		Links:        NewLinkRepo(content),
		Providers:    NewProviderRepo(),
		Vocabularies: NewVocabularyRepo(),
	}
}

var now = func() time.Time { return time.Now().UTC() }

func newETag() string {
	return uuid.NewString()
}
