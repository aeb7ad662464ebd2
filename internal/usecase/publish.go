package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// Publisher moves archived content to the published repo, letting item_publish
// handlers adjust the pending updates first.
type Publisher struct {
	content ports.ContentStore
	signals ports.Emitter
	logger  *slog.Logger
}

// NewPublisher wires the publish workflow.
func NewPublisher(content ports.ContentStore, signals ports.Emitter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{content: content, signals: signals, logger: logger}
}

// Publish publishes the content stored under id and returns the saved item.
func (p *Publisher) Publish(ctx context.Context, id string) (*domain.Content, error) {
	item, err := p.content.FindOne(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find content %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("content %s: %w", id, domain.ErrNotFound)
	}

	updates := &domain.ContentUpdates{
		AssignmentID: item.AssignmentID,
		State:        domain.StatePublished,
		PubStatus:    domain.PostUsable,
	}
	if p.signals != nil {
		if failed := p.signals.EmitItemPublish(ctx, ports.ItemPublish{Item: item, Updates: updates}); failed > 0 {
			p.logger.Warn("item_publish handlers failed", "item", item.ID, "failed", failed)
		}
	}

	item.AssignmentID = updates.AssignmentID
	item.State = updates.State
	item.PubStatus = updates.PubStatus
	item.Repo = domain.RepoPublished
	if err := p.content.Save(ctx, *item); err != nil {
		return nil, fmt.Errorf("save published %s: %w", id, err)
	}
	return item, nil
}
