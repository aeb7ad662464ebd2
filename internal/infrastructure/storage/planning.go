package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// PlanningRepository stores planning records as JSONB documents.
type PlanningRepository struct {
	db *sql.DB
}

var _ ports.PlanningStore = (*PlanningRepository)(nil)

func NewPlanningRepository(db *sql.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

func (r *PlanningRepository) FindOne(ctx context.Context, id string) (*domain.Planning, error) {
	var item domain.Planning
	ok, err := planningTable.find(ctx, r.db, id, false, &item)
	if err != nil || !ok {
		return nil, err
	}
	return &item, nil
}

func (r *PlanningRepository) Create(ctx context.Context, item domain.Planning) (*domain.Planning, error) {
	stamp(&item)
	if err := planningTable.insert(ctx, r.db, planningRow(&item)); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PlanningRepository) Replace(ctx context.Context, item domain.Planning) (*domain.Planning, error) {
	stamp(&item)
	if err := planningTable.update(ctx, r.db, planningRow(&item)); err != nil {
		return nil, err
	}
	return &item, nil
}

// PatchCoverages swaps the coverage list and creates the assignments of newly
// assigned coverages in the same transaction.
func (r *PlanningRepository) PatchCoverages(ctx context.Context, id string, coverages []domain.Coverage) (*domain.Planning, error) {
	var out *domain.Planning
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		item, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}

		item.Coverages = make([]domain.Coverage, len(coverages))
		for i, c := range coverages {
			c = c.Clone()
			if c.AssignedTo != nil && c.AssignedTo.AssignmentID == "" {
				assignmentID, err := insertAssignment(ctx, tx, domain.Assignment{
					PlanningItem: id,
					CoverageItem: c.CoverageID,
					AssignedTo:   *c.AssignedTo,
					Planning:     c.Planning,
					Priority:     c.AssignedTo.Priority,
				})
				if err != nil {
					return err
				}
				c.AssignedTo.AssignmentID = assignmentID
			}
			item.Coverages[i] = c
		}

		stamp(item)
		if err := planningTable.update(ctx, tx, planningRow(item)); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("patch coverages of %s: %w", id, err)
	}
	return out, nil
}

func (r *PlanningRepository) PostState(ctx context.Context, id string) (*domain.PostState, error) {
	return planningTable.postState(ctx, r.db, id)
}

func (r *PlanningRepository) Spike(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		item, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		item.State = domain.StateSpiked
		stamp(item)
		return planningTable.update(ctx, tx, planningRow(item))
	})
}

func (r *PlanningRepository) CancelPost(ctx context.Context, id, etag string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		item, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if etag != "" && etag != item.ETag {
			return fmt.Errorf("planning %s: etag mismatch", id)
		}
		item.State = domain.StateCancelled
		item.PubStatus = domain.PostCancelled
		stamp(item)
		return planningTable.update(ctx, tx, planningRow(item))
	})
}

func (r *PlanningRepository) lock(ctx context.Context, tx *sql.Tx, id string) (*domain.Planning, error) {
	var item domain.Planning
	ok, err := planningTable.find(ctx, tx, id, true, &item)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("planning %s: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

func stamp(item *domain.Planning) {
	item.ETag = uuid.NewString()
	item.Updated = now()
	item.Deliveries = nil
}

func planningRow(item *domain.Planning) recordRow {
	return recordRow{ID: item.ID, ETag: item.ETag, State: item.State, PubStatus: item.PubStatus, Doc: item}
}
