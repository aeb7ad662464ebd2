package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// EventRepository stores events as JSONB documents.
type EventRepository struct {
	db *sql.DB
}

var _ ports.EventStore = (*EventRepository)(nil)

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) FindOne(ctx context.Context, id string) (*domain.Event, error) {
	var item domain.Event
	ok, err := eventsTable.find(ctx, r.db, id, false, &item)
	if err != nil || !ok {
		return nil, err
	}
	return &item, nil
}

func (r *EventRepository) Create(ctx context.Context, item domain.Event) (*domain.Event, error) {
	stampEvent(&item)
	if err := eventsTable.insert(ctx, r.db, eventRow(&item)); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *EventRepository) Replace(ctx context.Context, item domain.Event) (*domain.Event, error) {
	stampEvent(&item)
	if err := eventsTable.update(ctx, r.db, eventRow(&item)); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *EventRepository) PostState(ctx context.Context, id string) (*domain.PostState, error) {
	return eventsTable.postState(ctx, r.db, id)
}

func (r *EventRepository) Spike(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(item *domain.Event) error {
		item.State = domain.StateSpiked
		return nil
	})
}

func (r *EventRepository) CancelPost(ctx context.Context, id, etag string) error {
	return r.mutate(ctx, id, func(item *domain.Event) error {
		if etag != "" && etag != item.ETag {
			return fmt.Errorf("event %s: etag mismatch", id)
		}
		item.State = domain.StateCancelled
		item.PubStatus = domain.PostCancelled
		return nil
	})
}

func (r *EventRepository) mutate(ctx context.Context, id string, fn func(*domain.Event) error) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var item domain.Event
		ok, err := eventsTable.find(ctx, tx, id, true, &item)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
		}
		if err := fn(&item); err != nil {
			return err
		}
		stampEvent(&item)
		return eventsTable.update(ctx, tx, eventRow(&item))
	})
}

func stampEvent(item *domain.Event) {
	item.ETag = uuid.NewString()
	item.Updated = now()
}

func eventRow(item *domain.Event) recordRow {
	return recordRow{ID: item.ID, ETag: item.ETag, State: item.State, PubStatus: item.PubStatus, Doc: item}
}
