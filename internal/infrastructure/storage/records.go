package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"STTIngest/internal/domain"
)

// recordTable is a table of postable JSONB documents (planning, events) with
// the retraction fields mirrored into columns.
type recordTable string

const (
	planningTable recordTable = "planning"
	eventsTable   recordTable = "events"
)

type recordRow struct {
	ID        string
	ETag      string
	State     domain.WorkflowState
	PubStatus domain.PostStatus
	Doc       any
}

func (t recordTable) find(ctx context.Context, db execer, id string, forUpdate bool, v any) (bool, error) {
	q := psql.Select("doc").From(string(t)).Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	ok, err := queryDoc(ctx, db, q, v)
	if err != nil {
		return false, fmt.Errorf("find %s %s: %w", t, id, err)
	}
	return ok, nil
}

func (t recordTable) insert(ctx context.Context, db execer, row recordRow) error {
	raw, err := json.Marshal(row.Doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", t, row.ID, err)
	}

	_, err = exec(ctx, db, psql.Insert(string(t)).
		Columns("id", "etag", "state", "pubstatus", "doc", "updated_at").
		Values(row.ID, row.ETag, string(row.State), string(row.PubStatus), string(raw), now()))
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %s already exists", t, row.ID)
	}
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", t, row.ID, err)
	}
	return nil
}

func (t recordTable) update(ctx context.Context, db execer, row recordRow) error {
	raw, err := json.Marshal(row.Doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", t, row.ID, err)
	}

	n, err := exec(ctx, db, psql.Update(string(t)).
		Set("etag", row.ETag).
		Set("state", string(row.State)).
		Set("pubstatus", string(row.PubStatus)).
		Set("doc", string(raw)).
		Set("updated_at", now()).
		Where(sq.Eq{"id": row.ID}))
	if err != nil {
		return fmt.Errorf("update %s %s: %w", t, row.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", t, row.ID, domain.ErrNotFound)
	}
	return nil
}

func (t recordTable) postState(ctx context.Context, db execer, id string) (*domain.PostState, error) {
	query, args, err := psql.Select("id", "etag", "state", "pubstatus").
		From(string(t)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var st domain.PostState
	var state, pubstatus string
	err = db.QueryRowContext(ctx, query, args...).Scan(&st.ID, &st.ETag, &state, &pubstatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("post state %s %s: %w", t, id, err)
	}
	st.State = domain.WorkflowState(state)
	st.PubStatus = domain.PostStatus(pubstatus)
	return &st, nil
}
