package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// AssignmentRepository stores assignments and their content links.
type AssignmentRepository struct {
	db *sql.DB
}

var (
	_ ports.AssignmentStore  = (*AssignmentRepository)(nil)
	_ ports.AssignmentLinker = (*AssignmentRepository)(nil)
)

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment domain.Assignment) (string, error) {
	return insertAssignment(ctx, r.db, assignment)
}

// Get returns nil when no assignment is stored under id.
func (r *AssignmentRepository) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	var a domain.Assignment
	ok, err := queryDoc(ctx, r.db, psql.Select("doc").From("assignments").Where(sq.Eq{"id": id}), &a)
	if err != nil {
		return nil, fmt.Errorf("find assignment %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Link records the link and, unless skipped, stamps the assignment on the content item.
func (r *AssignmentRepository) Link(ctx context.Context, link domain.AssignmentLink) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertLink(ctx, tx, link)
	})
}

func insertAssignment(ctx context.Context, db execer, a domain.Assignment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.AssignedTo.AssignmentID = a.ID

	raw, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode assignment: %w", err)
	}
	_, err = exec(ctx, db, psql.Insert("assignments").
		Columns("id", "planning_item", "coverage_item", "doc", "created_at").
		Values(a.ID, a.PlanningItem, a.CoverageItem, string(raw), now()))
	if err != nil {
		return "", fmt.Errorf("insert assignment for %s/%s: %w", a.PlanningItem, a.CoverageItem, err)
	}
	return a.ID, nil
}

func insertLink(ctx context.Context, db execer, link domain.AssignmentLink) error {
	_, err := exec(ctx, db, psql.Insert("assignment_links").
		Columns("assignment_id", "item_id", "skip_archive_update", "created_at").
		Values(link.AssignmentID, link.ItemID, link.SkipArchiveUpdate, now()).
		Suffix("ON CONFLICT (assignment_id, item_id) DO UPDATE SET skip_archive_update = EXCLUDED.skip_archive_update"))
	if err != nil {
		return fmt.Errorf("link %s to %s: %w", link.AssignmentID, link.ItemID, err)
	}
	if link.SkipArchiveUpdate {
		return nil
	}

	_, err = exec(ctx, db, psql.Update("content").
		Set("doc", sq.Expr("jsonb_set(doc, '{assignment_id}', to_jsonb(?::text))", link.AssignmentID)).
		Where(sq.Eq{"id": link.ItemID}))
	if err != nil {
		return fmt.Errorf("stamp assignment on %s: %w", link.ItemID, err)
	}
	return nil
}
