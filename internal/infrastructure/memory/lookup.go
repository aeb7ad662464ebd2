package memory

import (
	"context"
	"fmt"
	"sync"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// ProviderRepo holds configured ingest providers.
type ProviderRepo struct {
	mu    sync.RWMutex
	items map[string]domain.IngestProvider
}

var _ ports.IngestProviders = (*ProviderRepo)(nil)

func NewProviderRepo() *ProviderRepo {
	return &ProviderRepo{items: map[string]domain.IngestProvider{}}
}

// Put adds or replaces providers.
func (r *ProviderRepo) Put(providers ...domain.IngestProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range providers {
		r.items[p.ID] = p
	}
}

func (r *ProviderRepo) FindOne(_ context.Context, id string) (*domain.IngestProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// VocabularyRepo holds controlled vocabularies.
type VocabularyRepo struct {
	mu    sync.RWMutex
	items map[string][]domain.VocabularyItem
}

var _ ports.Vocabularies = (*VocabularyRepo)(nil)

func NewVocabularyRepo() *VocabularyRepo {
	return &VocabularyRepo{items: map[string][]domain.VocabularyItem{}}
}

// Put replaces the items of vocabulary id.
func (r *VocabularyRepo) Put(id string, items ...domain.VocabularyItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = append([]domain.VocabularyItem(nil), items...)
}

func (r *VocabularyRepo) Items(_ context.Context, id string) ([]domain.VocabularyItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("vocabulary %s: %w", id, domain.ErrNotFound)
	}
	return append([]domain.VocabularyItem(nil), items...), nil
}
