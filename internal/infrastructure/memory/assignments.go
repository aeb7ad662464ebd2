package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// AssignmentRepo stores assignments.
type AssignmentRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Assignment
	order []string
}

var _ ports.AssignmentStore = (*AssignmentRepo)(nil)

func NewAssignmentRepo() *AssignmentRepo {
	return &AssignmentRepo{items: map[string]domain.Assignment{}}
}

func (r *AssignmentRepo) Create(_ context.Context, assignment domain.Assignment) (string, error) {
	return r.create(assignment), nil
}

func (r *AssignmentRepo) create(assignment domain.Assignment) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.AssignedTo.AssignmentID = assignment.ID
	r.items[assignment.ID] = assignment
	r.order = append(r.order, assignment.ID)
	return assignment.ID
}

// Get returns the assignment stored under id.
func (r *AssignmentRepo) Get(id string) (domain.Assignment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	return a, ok
}

// List returns assignments in creation order.
func (r *AssignmentRepo) List() []domain.Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Assignment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// LinkRepo records assignment links and back-fills the archived item.
type LinkRepo struct {
	mu      sync.Mutex
	links   []domain.AssignmentLink
	content *ContentRepo
}

var _ ports.AssignmentLinker = (*LinkRepo)(nil)

func NewLinkRepo(content *ContentRepo) *LinkRepo {
	return &LinkRepo{content: content}
}

func (r *LinkRepo) Link(_ context.Context, link domain.AssignmentLink) error {
	r.mu.Lock()
	r.links = append(r.links, link)
	r.mu.Unlock()

	if !link.SkipArchiveUpdate && r.content != nil {
		r.content.setAssignment(link.ItemID, link.AssignmentID)
	}
	return nil
}

// Links returns every recorded link.
func (r *LinkRepo) Links() []domain.AssignmentLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AssignmentLink(nil), r.links...)
}
