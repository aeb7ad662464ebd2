package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

var errEmptyFilter = errors.New("delivery filter matches every row")

// DeliveryRepository is the delivery ledger table.
type DeliveryRepository struct {
	db *sql.DB
}

var (
	_ ports.DeliveryLedger = (*DeliveryRepository)(nil)
	_ ports.LinkFinalizer  = (*DeliveryRepository)(nil)
)

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Find(ctx context.Context, filter domain.DeliveryFilter) ([]domain.Delivery, error) {
	query, args, err := psql.Select("id", "planning_id", "coverage_id", "item_id", "assignment_id", "created_at").
		From("deliveries").
		Where(deliveryWhere(filter)).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		if err := rows.Scan(&d.ID, &d.PlanningID, &d.CoverageID, &d.ItemID, &d.AssignmentID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

// Post inserts rows and returns the ids actually written. A row already
// recorded for the same planning, coverage and item is skipped.
func (r *DeliveryRepository) Post(ctx context.Context, rows []domain.Delivery) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	q := psql.Insert("deliveries").
		Columns("id", "planning_id", "coverage_id", "item_id", "assignment_id", "created_at").
		Suffix("ON CONFLICT (planning_id, coverage_id, item_id) DO NOTHING RETURNING id")
	for _, row := range rows {
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now()
		}
		q = q.Values(row.ID, row.PlanningID, row.CoverageID, row.ItemID, row.AssignmentID, row.CreatedAt)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	res, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("post deliveries: %w", err)
	}
	defer res.Close()

	ids := make([]string, 0, len(rows))
	for res.Next() {
		var id string
		if err := res.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan delivery id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("post deliveries: %w", err)
	}
	return ids, nil
}

func (r *DeliveryRepository) Delete(ctx context.Context, filter domain.DeliveryFilter) (int, error) {
	n, err := deleteDeliveries(ctx, r.db, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// FinalizeLink clears the consumed rows and records the assignment link atomically.
func (r *DeliveryRepository) FinalizeLink(ctx context.Context, consumed domain.DeliveryFilter, link domain.AssignmentLink) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := deleteDeliveries(ctx, tx, consumed); err != nil {
			return err
		}
		return insertLink(ctx, tx, link)
	})
}

func deleteDeliveries(ctx context.Context, db execer, filter domain.DeliveryFilter) (int64, error) {
	if isEmptyFilter(filter) {
		return 0, errEmptyFilter
	}
	n, err := exec(ctx, db, psql.Delete("deliveries").Where(deliveryWhere(filter)))
	if err != nil {
		return 0, fmt.Errorf("delete deliveries: %w", err)
	}
	return n, nil
}

func isEmptyFilter(f domain.DeliveryFilter) bool {
	return f.PlanningID == "" && f.CoverageID == "" && len(f.ItemIDs) == 0 && !f.UnresolvedOnly
}

func deliveryWhere(f domain.DeliveryFilter) sq.And {
	where := sq.And{}
	if f.PlanningID != "" {
		where = append(where, sq.Eq{"planning_id": f.PlanningID})
	}
	if f.CoverageID != "" {
		where = append(where, sq.Eq{"coverage_id": f.CoverageID})
	}
	if len(f.ItemIDs) > 0 {
		where = append(where, sq.Eq{"item_id": f.ItemIDs})
	}
	if f.UnresolvedOnly {
		where = append(where, sq.Eq{"assignment_id": ""})
	}
	return where
}
