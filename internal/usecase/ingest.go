package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"STTIngest/internal/domain"
	"STTIngest/internal/feed"
	"STTIngest/internal/ident"
	"STTIngest/internal/metrics"
	"STTIngest/internal/ports"
)

// IngesterDeps wires all driven adapters into the ingest workflow.
type IngesterDeps struct {
	Parsers  *feed.Registry
	Planning ports.PlanningStore
	Events   ports.EventStore
	Content  ports.ContentStore
	Ledger   ports.DeliveryLedger
	Guard    ports.OnceGuard
	Signals  ports.Emitter
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

// Ingester implements the per-payload ingest workflow.
type Ingester struct {
	parsers  *feed.Registry
	planning ports.PlanningStore
	events   ports.EventStore
	content  ports.ContentStore
	ledger   ports.DeliveryLedger
	guard    ports.OnceGuard
	signals  ports.Emitter
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// Summary reports what one payload produced.
type Summary struct {
	Contents   int
	Events     int
	Plannings  int
	Deliveries int
	Retracted  int
	// Skipped is set when a retraction payload was already handled.
	Skipped bool
}

// NewIngester constructs the orchestration component.
func NewIngester(deps IngesterDeps) *Ingester {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		parsers:  deps.Parsers,
		planning: deps.Planning,
		events:   deps.Events,
		content:  deps.Content,
		ledger:   deps.Ledger,
		guard:    deps.Guard,
		signals:  deps.Signals,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Ingest parses one raw payload for provider and stores its items. Failures of
// individual items are joined into the returned error; the remaining items
// are still processed.
func (i *Ingester) Ingest(ctx context.Context, provider domain.IngestProvider, raw []byte) (Summary, error) {
	var summary Summary
	if i.parsers == nil {
		return summary, fmt.Errorf("feed parsers are not configured")
	}

	parser, err := i.parsers.Resolve(provider.FeedParser)
	if err != nil {
		return summary, fmt.Errorf("provider %s: %w", provider.ID, err)
	}
	doc, err := feed.Decode(raw)
	if err != nil {
		return summary, fmt.Errorf("provider %s: %w", provider.ID, err)
	}
	batch, err := parser.Parse(ctx, doc, provider)
	if err != nil {
		return summary, fmt.Errorf("parse %s payload: %w", parser.Name(), err)
	}

	if batch.Remove {
		return i.retract(ctx, batch, raw)
	}

	var errs []error
	for _, item := range batch.Contents {
		if err := i.storeContent(ctx, item); err != nil {
			errs = append(errs, i.failed("content", item.GUID, err))
			continue
		}
		summary.Contents++
	}
	for _, item := range batch.Events {
		if err := i.storeEvent(ctx, provider, item); err != nil {
			errs = append(errs, i.failed("event", item.GUID, err))
			continue
		}
		summary.Events++
	}
	for _, item := range batch.Plannings {
		recorded, err := i.storePlanning(ctx, provider, item)
		summary.Deliveries += recorded
		if err != nil {
			errs = append(errs, i.failed("planning", item.GUID, err))
			continue
		}
		summary.Plannings++
	}

	i.logger.Debug("payload ingested",
		"provider", provider.ID,
		"parser", parser.Name(),
		"contents", summary.Contents,
		"events", summary.Events,
		"plannings", summary.Plannings,
		"deliveries", summary.Deliveries,
	)
	return summary, errors.Join(errs...)
}

func (i *Ingester) failed(kind, guid string, err error) error {
	err = fmt.Errorf("%s %s: %w", kind, guid, err)
	i.logger.Error("ingest item failed", "type", kind, "guid", guid, "error", err)
	return err
}

// retract handles a payload carrying the remove signal. It runs at most once
// per payload content.
func (i *Ingester) retract(ctx context.Context, batch feed.Batch, raw []byte) (Summary, error) {
	var summary Summary
	if i.guard != nil {
		sum := sha256.Sum256(raw)
		first, err := i.guard.First(ctx, "retract:"+hex.EncodeToString(sum[:]))
		if err != nil {
			return summary, fmt.Errorf("retract guard: %w", err)
		}
		if !first {
			i.logger.Debug("retraction already handled for payload")
			summary.Skipped = true
			return summary, nil
		}
	}

	var errs []error
	record := func(kind, guid, outcome string, err error) {
		if err != nil {
			errs = append(errs, i.failed(kind, guid, err))
			return
		}
		if outcome == RetractNone {
			return
		}
		summary.Retracted++
		i.metrics.Retracted(outcome)
		i.logger.Info("item retracted", "type", kind, "guid", guid, "action", outcome)
	}

	for _, item := range batch.Events {
		if i.events == nil || item.GUID == "" {
			continue
		}
		outcome, err := Retract(ctx, i.events, item.GUID)
		record("event", item.GUID, outcome, err)
	}
	for _, item := range batch.Plannings {
		if i.planning == nil || item.GUID == "" {
			continue
		}
		outcome, err := Retract(ctx, i.planning, item.GUID)
		record("planning", item.GUID, outcome, err)
	}
	return summary, errors.Join(errs...)
}

func (i *Ingester) storeContent(ctx context.Context, item domain.Content) error {
	if item.GUID == "" {
		return domain.ErrMissingID
	}
	if i.content == nil {
		return fmt.Errorf("content store is not configured")
	}

	item.ID = item.GUID
	if item.Type == "" {
		item.Type = domain.TypeText
	}
	item.State = domain.StateIngested
	item.Repo = domain.RepoArchive
	if err := i.content.Save(ctx, item); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	i.metrics.Ingested(item.Type)
	return nil
}

func (i *Ingester) storeEvent(ctx context.Context, provider domain.IngestProvider, item domain.Event) error {
	if item.GUID == "" {
		return domain.ErrMissingID
	}
	if i.events == nil {
		return fmt.Errorf("event store is not configured")
	}

	id, err := ident.Resolve(ctx, item.GUID, i.eventExists)
	if err != nil {
		return err
	}
	item.ID = id
	item.Type = domain.TypeEvent
	item.IngestProvider = provider.ID

	existing, err := i.events.FindOne(ctx, id)
	if err != nil {
		return fmt.Errorf("find existing: %w", err)
	}
	if existing != nil {
		item.State = existing.State
		item.PubStatus = existing.PubStatus
		item.ETag = existing.ETag
		if _, err := i.events.Replace(ctx, item); err != nil {
			return fmt.Errorf("replace: %w", err)
		}
	} else {
		item.State = domain.StateIngested
		if _, err := i.events.Create(ctx, item); err != nil {
			return fmt.Errorf("create: %w", err)
		}
	}
	i.metrics.Ingested(domain.TypeEvent)
	return nil
}

func (i *Ingester) storePlanning(ctx context.Context, provider domain.IngestProvider, item domain.Planning) (int, error) {
	if item.GUID == "" {
		return 0, domain.ErrMissingID
	}
	if i.planning == nil {
		return 0, fmt.Errorf("planning store is not configured")
	}

	id, err := ident.Resolve(ctx, item.GUID, i.planningExists)
	if err != nil {
		return 0, err
	}
	item.ID = id
	item.Type = domain.TypePlanning
	item.IngestProvider = provider.ID

	existing, err := i.planning.FindOne(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("find existing: %w", err)
	}

	if item.EventItem != "" && i.events != nil {
		eventID, err := ident.Resolve(ctx, item.EventItem, i.eventExists)
		if err != nil {
			return 0, err
		}
		item.EventItem = eventID
		item.Extra.SttEvents = ident.LastSegment(eventID)
	}

	item.Coverages = ReconcileCoverages(existing, item)

	var saved *domain.Planning
	if existing != nil {
		item.State = existing.State
		item.PubStatus = existing.PubStatus
		item.ETag = existing.ETag
		saved, err = i.planning.Replace(ctx, item)
		if err != nil {
			return 0, fmt.Errorf("replace: %w", err)
		}
	} else {
		item.State = domain.StateIngested
		saved, err = i.planning.Create(ctx, item)
		if err != nil {
			return 0, fmt.Errorf("create: %w", err)
		}
	}
	saved.Deliveries = item.Deliveries
	i.metrics.Ingested(domain.TypePlanning)

	recorded, err := RecordDeliveries(ctx, i.ledger, *saved)
	if err != nil {
		return 0, err
	}
	i.metrics.DeliveriesRecorded(recorded)

	if i.signals != nil {
		if failed := i.signals.EmitPlanningIngested(ctx, ports.PlanningIngested{Item: saved, Original: existing}); failed > 0 {
			i.logger.Warn("planning_ingested handlers failed", "planning", saved.ID, "failed", failed)
		}
	}
	return recorded, nil
}

func (i *Ingester) planningExists(ctx context.Context, id string) (bool, error) {
	item, err := i.planning.FindOne(ctx, id)
	return item != nil, err
}

func (i *Ingester) eventExists(ctx context.Context, id string) (bool, error) {
	item, err := i.events.FindOne(ctx, id)
	return item != nil, err
}
