package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// FileSource implements FeedSource over provider directories. Every file is
// returned once per process.
type FileSource struct {
	mu        sync.Mutex
	processed map[string]struct{}
	logger    *slog.Logger
}

var _ ports.FeedSource = (*FileSource)(nil)

// NewFileSource builds a directory poller.
func NewFileSource(log *slog.Logger) *FileSource {
	return &FileSource{
		processed: map[string]struct{}{},
		logger:    log,
	}
}

// Fetch reads the XML files of provider.Path not returned before, in name order.
func (s *FileSource) Fetch(ctx context.Context, provider domain.IngestProvider) ([]ports.Payload, error) {
	if provider.Path == "" {
		return nil, fmt.Errorf("provider %s has no path", provider.ID)
	}

	entries, err := os.ReadDir(provider.Path)
	if err != nil {
		return nil, fmt.Errorf("read provider %s dir: %w", provider.ID, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()

	var payloads []ports.Payload
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return payloads, err
		}

		path := filepath.Join(provider.Path, name)
		if _, done := s.processed[path]; done {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return payloads, fmt.Errorf("read %s: %w", path, err)
		}
		s.processed[path] = struct{}{}
		payloads = append(payloads, ports.Payload{Name: name, Data: data})
	}

	s.debug("provider fetched", "provider", provider.ID, "files", len(payloads))
	return payloads, nil
}

func (s *FileSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
