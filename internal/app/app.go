package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"STTIngest/internal/config"
	"STTIngest/internal/domain"
	"STTIngest/internal/feed"
	"STTIngest/internal/infrastructure/cache"
	"STTIngest/internal/infrastructure/memory"
	"STTIngest/internal/infrastructure/parser"
	"STTIngest/internal/infrastructure/scheduler"
	"STTIngest/internal/infrastructure/storage"
	"STTIngest/internal/infrastructure/superdesk"
	"STTIngest/internal/logging"
	"STTIngest/internal/metrics"
	"STTIngest/internal/ports"
	"STTIngest/internal/signals"
	"STTIngest/internal/usecase"
	"STTIngest/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	providers ports.IngestProviders
	source    ports.FeedSource
	ingester  *usecase.Ingester
	publisher *usecase.Publisher
	scheduler *usecase.Scheduler
	closers   []func() error
}

type backends struct {
	planning     ports.PlanningStore
	events       ports.EventStore
	content      ports.ContentStore
	search       ports.ContentSearch
	ledger       ports.DeliveryLedger
	assignments  ports.AssignmentStore
	links        ports.AssignmentLinker
	providers    ports.IngestProviders
	vocabularies ports.Vocabularies
	guard        ports.OnceGuard
}

// ledgerOnly hides ports.LinkFinalizer so links go through the configured linker.
type ledgerOnly struct {
	ports.DeliveryLedger
}

// New builds the application. Postgres and Redis are used when configured,
// otherwise the in-memory adapters.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b, err := a.openBackends(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.providers = b.providers

	rec := metrics.New(a.registry)
	loc := cfg.Ingest.Location()

	registry := feed.NewRegistry()
	registry.Register(parser.NewNewsML(loc, baseLogger.With("component", "parser.newsml")))
	registry.Register(parser.NewEventsML(loc, baseLogger.With("component", "parser.eventsml")))
	registry.Register(parser.NewPlanningML(b.vocabularies, loc, baseLogger.With("component", "parser.planningml")))

	bus := signals.NewBus(baseLogger.With("component", "signals"))
	linker := usecase.NewLinker(usecase.LinkerDeps{
		Planning:          b.planning,
		Ledger:            b.ledger,
		Search:            b.search,
		Links:             b.links,
		Assignments:       b.assignments,
		Providers:         b.providers,
		Repos:             cfg.Search.Repos,
		PlanningURNPrefix: cfg.Planning.URNPrefix,
		Metrics:           rec,
		Logger:            baseLogger.With("component", "linker"),
	})
	linker.Register(bus)

	a.ingester = usecase.NewIngester(usecase.IngesterDeps{
		Parsers:  registry,
		Planning: b.planning,
		Events:   b.events,
		Content:  b.content,
		Ledger:   b.ledger,
		Guard:    b.guard,
		Signals:  bus,
		Metrics:  rec,
		Logger:   baseLogger.With("component", "ingest"),
	})
	a.publisher = usecase.NewPublisher(b.content, bus, baseLogger.With("component", "publish"))
	a.source = parser.NewFileSource(baseLogger.With("component", "source"))

	cron, err := scheduler.NewCronScheduler(cfg.Ingest.CronExpression, cfg.Ingest.RunOnStart)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.scheduler = usecase.NewScheduler(cron, a.source, a.ingester, cfg.Ingest.Providers, baseLogger.With("component", "scheduler"))

	return a, nil
}

func (a *Application) openBackends(ctx context.Context) (backends, error) {
	var b backends

	if a.cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, a.cfg.Database.DSN)
		if err != nil {
			return b, err
		}
		a.closers = append(a.closers, db.Close)
		if a.cfg.Database.AutoMigrate {
			if err := storage.Migrate(db, logger.NewMigrate(a.logger, false)); err != nil {
				return b, err
			}
		}

		pg := storage.NewStore(db)
		if err := pg.Providers.Put(ctx, a.cfg.Ingest.Providers...); err != nil {
			return b, err
		}
		b = backends{
			planning:     pg.Planning,
			events:       pg.Events,
			content:      pg.Content,
			search:       pg.Content,
			ledger:       pg.Ledger,
			assignments:  pg.Assignments,
			links:        pg.Assignments,
			providers:    pg.Providers,
			vocabularies: pg.Vocabularies,
		}
		a.logger.Info("using postgres stores")
	} else {
		mem := memory.New()
		mem.Providers.Put(a.cfg.Ingest.Providers...)
		b = backends{
			planning:     mem.Planning,
			events:       mem.Events,
			content:      mem.Content,
			search:       mem.Content,
			ledger:       mem.Ledger,
			assignments:  mem.Assignments,
			links:        mem.Links,
			providers:    mem.Providers,
			vocabularies: mem.Vocabularies,
		}
		a.logger.Info("using in-memory stores")
	}

	if a.cfg.Superdesk.URL != "" {
		client := superdesk.NewClient(a.cfg.Superdesk.URL, a.cfg.Superdesk.Token)
		b.links = client
		b.vocabularies = client
		b.ledger = ledgerOnly{b.ledger}
	}

	if a.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return b, fmt.Errorf("ping redis: %w", err)
		}
		b.guard = cache.NewRedisGuard(client, a.cfg.Redis.RetractTTL)
	} else {
		b.guard = cache.NewMemoryGuard(a.cfg.Redis.RetractTTL)
	}

	return b, nil
}

// IngestFiles ingests each file for the provider and returns the combined summary.
func (a *Application) IngestFiles(ctx context.Context, providerID string, paths []string) (usecase.Summary, error) {
	provider, err := a.provider(ctx, providerID)
	if err != nil {
		return usecase.Summary{}, err
	}

	var total usecase.Summary
	var errs []error
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))
			continue
		}
		summary, err := a.ingester.Ingest(ctx, provider, raw)
		total = addSummary(total, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", path, err))
		}
	}
	return total, errors.Join(errs...)
}

// IngestProvider ingests every pending file of the provider directory once.
func (a *Application) IngestProvider(ctx context.Context, providerID string) (usecase.Summary, error) {
	provider, err := a.provider(ctx, providerID)
	if err != nil {
		return usecase.Summary{}, err
	}
	payloads, err := a.source.Fetch(ctx, provider)
	if err != nil {
		return usecase.Summary{}, err
	}

	var total usecase.Summary
	var errs []error
	for _, p := range payloads {
		summary, err := a.ingester.Ingest(ctx, provider, p.Data)
		total = addSummary(total, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", p.Name, err))
		}
	}
	return total, errors.Join(errs...)
}

// Publish publishes an archived content item.
func (a *Application) Publish(ctx context.Context, id string) (*domain.Content, error) {
	return a.publisher.Publish(ctx, id)
}

// Watch polls the providers on the configured cron schedule until ctx is done.
func (a *Application) Watch(ctx context.Context) error {
	var srv *http.Server
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.MetricsHandler())
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching providers", "cron", a.cfg.Ingest.CronExpression, "providers", len(a.cfg.Ingest.Providers))
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.scheduler.Stop(stopCtx)
	if srv != nil {
		if shutdownErr := srv.Shutdown(stopCtx); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
	}
	return err
}

// MetricsHandler exposes the application registry.
func (a *Application) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Close releases connections in reverse open order.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Migrate applies the embedded schema to the configured database.
func Migrate(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Database.DSN == "" {
		return errors.New("migrate: database dsn is not configured")
	}
	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)
	return storage.Migrate(db, logger.NewMigrate(log, true))
}

func (a *Application) provider(ctx context.Context, id string) (domain.IngestProvider, error) {
	p, err := a.providers.FindOne(ctx, id)
	if err != nil {
		return domain.IngestProvider{}, fmt.Errorf("find provider %s: %w", id, err)
	}
	if p == nil {
		return domain.IngestProvider{}, fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	}
	return *p, nil
}

func addSummary(total, s usecase.Summary) usecase.Summary {
	total.Contents += s.Contents
	total.Events += s.Events
	total.Plannings += s.Plannings
	total.Deliveries += s.Deliveries
	total.Retracted += s.Retracted
	total.Skipped = total.Skipped || s.Skipped
	return total
}
