package memory

import (
	"context"
	"fmt"
	"sync"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// PlanningRepo stores planning records.
type PlanningRepo struct {
	mu          sync.RWMutex
	items       map[string]domain.Planning
	assignments *AssignmentRepo
}

var _ ports.PlanningStore = (*PlanningRepo)(nil)

// NewPlanningRepo creates assignments through assignments on patch.
func NewPlanningRepo(assignments *AssignmentRepo) *PlanningRepo {
	return &PlanningRepo{items: map[string]domain.Planning{}, assignments: assignments}
}

func (r *PlanningRepo) FindOne(_ context.Context, id string) (*domain.Planning, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	out := clonePlanning(item)
	return &out, nil
}

func (r *PlanningRepo) Create(_ context.Context, item domain.Planning) (*domain.Planning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; ok {
		return nil, fmt.Errorf("planning %s already exists", item.ID)
	}
	return r.store(item), nil
}

func (r *PlanningRepo) Replace(_ context.Context, item domain.Planning) (*domain.Planning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return nil, fmt.Errorf("planning %s: %w", item.ID, domain.ErrNotFound)
	}
	return r.store(item), nil
}

func (r *PlanningRepo) PatchCoverages(_ context.Context, id string, coverages []domain.Coverage) (*domain.Planning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("planning %s: %w", id, domain.ErrNotFound)
	}

	item.Coverages = make([]domain.Coverage, len(coverages))
	for i, c := range coverages {
		c = c.Clone()
		if c.AssignedTo != nil && c.AssignedTo.AssignmentID == "" && r.assignments != nil {
			c.AssignedTo.AssignmentID = r.assignments.create(domain.Assignment{
				PlanningItem: id,
				CoverageItem: c.CoverageID,
				AssignedTo:   *c.AssignedTo,
				Planning:     c.Planning,
				Priority:     c.AssignedTo.Priority,
			})
		}
		item.Coverages[i] = c
	}
	return r.store(item), nil
}

func (r *PlanningRepo) PostState(_ context.Context, id string) (*domain.PostState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &domain.PostState{ID: item.ID, ETag: item.ETag, State: item.State, PubStatus: item.PubStatus}, nil
}

func (r *PlanningRepo) Spike(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("planning %s: %w", id, domain.ErrNotFound)
	}
	item.State = domain.StateSpiked
	r.store(item)
	return nil
}

func (r *PlanningRepo) CancelPost(_ context.Context, id, etag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("planning %s: %w", id, domain.ErrNotFound)
	}
	if etag != "" && etag != item.ETag {
		return fmt.Errorf("planning %s: etag mismatch", id)
	}
	item.State = domain.StateCancelled
	item.PubStatus = domain.PostCancelled
	r.store(item)
	return nil
}

// store must be called with the write lock held.
func (r *PlanningRepo) store(item domain.Planning) *domain.Planning {
	item.ETag = newETag()
	item.Updated = now()
	item.Deliveries = nil
	r.items[item.ID] = clonePlanning(item)
	return &item
}

func clonePlanning(item domain.Planning) domain.Planning {
	item.Coverages = item.CloneCoverages()
	item.Subject = append([]domain.Subject(nil), item.Subject...)
	return item
}
