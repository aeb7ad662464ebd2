package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"STTIngest/internal/domain"
	"STTIngest/internal/ident"
	"STTIngest/internal/ports"
)

// ContentRepo stores content items and answers uri searches.
type ContentRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Content
}

var (
	_ ports.ContentStore  = (*ContentRepo)(nil)
	_ ports.ContentSearch = (*ContentRepo)(nil)
)

func NewContentRepo() *ContentRepo {
	return &ContentRepo{items: map[string]domain.Content{}}
}

func (r *ContentRepo) FindOne(_ context.Context, id string) (*domain.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *ContentRepo) Save(_ context.Context, item domain.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.Repo == "" {
		item.Repo = domain.RepoArchive
	}
	r.items[item.ID] = item
	return nil
}

// FindByURIs matches the stored uri or its canonical form and returns the
// lowest rewrite_sequence among the hits.
func (r *ContentRepo) FindByURIs(_ context.Context, uris []string, repos []string) (*domain.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hits []domain.Content
	for _, item := range r.items {
		if len(repos) > 0 && !slices.Contains(repos, item.Repo) {
			continue
		}
		if slices.Contains(uris, item.URI) || slices.Contains(uris, ident.Normalize(item.URI)) {
			hits = append(hits, item)
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].RewriteSequence != hits[j].RewriteSequence {
			return hits[i].RewriteSequence < hits[j].RewriteSequence
		}
		return hits[i].ID < hits[j].ID
	})
	return &hits[0], nil
}

func (r *ContentRepo) setAssignment(id, assignmentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item, ok := r.items[id]; ok {
		item.AssignmentID = assignmentID
		r.items[id] = item
	}
}
