package memory

import (
	"context"
	"fmt"
	"sync"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// EventRepo stores events.
type EventRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Event
}

var _ ports.EventStore = (*EventRepo)(nil)

func NewEventRepo() *EventRepo {
	return &EventRepo{items: map[string]domain.Event{}}
}

func (r *EventRepo) FindOne(_ context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *EventRepo) Create(_ context.Context, item domain.Event) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; ok {
		return nil, fmt.Errorf("event %s already exists", item.ID)
	}
	return r.store(item), nil
}

func (r *EventRepo) Replace(_ context.Context, item domain.Event) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return nil, fmt.Errorf("event %s: %w", item.ID, domain.ErrNotFound)
	}
	return r.store(item), nil
}

func (r *EventRepo) PostState(_ context.Context, id string) (*domain.PostState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &domain.PostState{ID: item.ID, ETag: item.ETag, State: item.State, PubStatus: item.PubStatus}, nil
}

func (r *EventRepo) Spike(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	item.State = domain.StateSpiked
	r.store(item)
	return nil
}

func (r *EventRepo) CancelPost(_ context.Context, id, etag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	if etag != "" && etag != item.ETag {
		return fmt.Errorf("event %s: etag mismatch", id)
	}
	item.State = domain.StateCancelled
	item.PubStatus = domain.PostCancelled
	r.store(item)
	return nil
}

func (r *EventRepo) store(item domain.Event) *domain.Event {
	item.ETag = newETag()
	item.Updated = now()
	r.items[item.ID] = item
	return &item
}
