package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// ProviderRepository holds configured ingest providers.
type ProviderRepository struct {
	db *sql.DB
}

var _ ports.IngestProviders = (*ProviderRepository)(nil)

func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) FindOne(ctx context.Context, id string) (*domain.IngestProvider, error) {
	var p domain.IngestProvider
	ok, err := queryDoc(ctx, r.db, psql.Select("doc").From("ingest_providers").Where(sq.Eq{"id": id}), &p)
	if err != nil {
		return nil, fmt.Errorf("find provider %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Put upserts providers.
func (r *ProviderRepository) Put(ctx context.Context, providers ...domain.IngestProvider) error {
	for _, p := range providers {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode provider %s: %w", p.ID, err)
		}
		_, err = exec(ctx, r.db, psql.Insert("ingest_providers").
			Columns("id", "doc").
			Values(p.ID, string(raw)).
			Suffix("ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc"))
		if err != nil {
			return fmt.Errorf("put provider %s: %w", p.ID, err)
		}
	}
	return nil
}

// VocabularyRepository holds controlled vocabularies.
type VocabularyRepository struct {
	db *sql.DB
}

var _ ports.Vocabularies = (*VocabularyRepository)(nil)

func NewVocabularyRepository(db *sql.DB) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

func (r *VocabularyRepository) Items(ctx context.Context, id string) ([]domain.VocabularyItem, error) {
	var items []domain.VocabularyItem
	ok, err := queryDoc(ctx, r.db, psql.Select("items").From("vocabularies").Where(sq.Eq{"id": id}), &items)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("vocabulary %s: %w", id, domain.ErrNotFound)
	}
	return items, nil
}

// Put replaces the items of vocabulary id.
func (r *VocabularyRepository) Put(ctx context.Context, id string, items ...domain.VocabularyItem) error {
	if items == nil {
		items = []domain.VocabularyItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode vocabulary %s: %w", id, err)
	}
	_, err = exec(ctx, r.db, psql.Insert("vocabularies").
		Columns("id", "items").
		Values(id, string(raw)).
		Suffix("ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items"))
	if err != nil {
		return fmt.Errorf("put vocabulary %s: %w", id, err)
	}
	return nil
}
