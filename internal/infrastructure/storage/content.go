package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"STTIngest/internal/domain"
	"STTIngest/internal/ident"
	"STTIngest/internal/ports"
)

const contentUpsert = "ON CONFLICT (id) DO UPDATE SET " +
	"uri = EXCLUDED.uri, canonical_uri = EXCLUDED.canonical_uri, repo = EXCLUDED.repo, " +
	"rewrite_sequence = EXCLUDED.rewrite_sequence, doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at"

// ContentRepository stores content items across the ingest, archive and
// published repositories.
type ContentRepository struct {
	db *sql.DB
}

var (
	_ ports.ContentStore  = (*ContentRepository)(nil)
	_ ports.ContentSearch = (*ContentRepository)(nil)
)

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) FindOne(ctx context.Context, id string) (*domain.Content, error) {
	item, err := r.scanOne(ctx, psql.Select("repo", "doc").From("content").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("find content %s: %w", id, err)
	}
	return item, nil
}

func (r *ContentRepository) Save(ctx context.Context, item domain.Content) error {
	if item.Repo == "" {
		item.Repo = domain.RepoArchive
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode content %s: %w", item.ID, err)
	}

	_, err = exec(ctx, r.db, psql.Insert("content").
		Columns("id", "uri", "canonical_uri", "repo", "rewrite_sequence", "doc", "updated_at").
		Values(item.ID, item.URI, ident.Normalize(item.URI), item.Repo, item.RewriteSequence, string(raw), now()).
		Suffix(contentUpsert))
	if err != nil {
		return fmt.Errorf("save content %s: %w", item.ID, err)
	}
	return nil
}

// FindByURIs matches the stored uri or its canonical form within repos and
// returns the lowest rewrite_sequence.
func (r *ContentRepository) FindByURIs(ctx context.Context, uris []string, repos []string) (*domain.Content, error) {
	if len(uris) == 0 {
		return nil, nil
	}

	q := psql.Select("repo", "doc").
		From("content").
		Where(sq.Or{sq.Eq{"uri": uris}, sq.Eq{"canonical_uri": uris}}).
		OrderBy("rewrite_sequence ASC", "id ASC").
		Limit(1)
	if len(repos) > 0 {
		q = q.Where(sq.Eq{"repo": repos})
	}

	item, err := r.scanOne(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	return item, nil
}

func (r *ContentRepository) scanOne(ctx context.Context, q sq.SelectBuilder) (*domain.Content, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var repo string
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&repo, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var item domain.Content
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	item.Repo = repo
	return &item, nil
}
