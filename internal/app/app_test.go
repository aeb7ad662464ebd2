package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"STTIngest/internal/config"
	"STTIngest/internal/domain"
	"STTIngest/internal/infrastructure/storage"
	"STTIngest/internal/ports"
)

const planningFixture = "../infrastructure/parser/testdata/planningml.xml"

func testConfig(t *testing.T, dir string) config.Config {
	t.Helper()

	var cfg config.Config
	cfg.Ingest.CronExpression = "*/5 * * * *"
	cfg.Ingest.Providers = []domain.IngestProvider{
		{ID: "stt-planning", Name: "STT planning", FeedParser: domain.ParserPlanningML, Path: dir},
	}
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *Application {
	t.Helper()

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestIngestFilesWithMemoryBackends(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t, t.TempDir()))
	summary, err := a.IngestFiles(context.Background(), "stt-planning", []string{planningFixture})
	if err != nil {
		t.Fatalf("IngestFiles: %v", err)
	}
	if summary.Plannings != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `sttingest_items_ingested_total{type="planning"} 1`) {
		t.Fatalf("planning ingest not counted:\n%s", rec.Body.String())
	}
}

func TestIngestProviderReadsDirectoryOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw, err := os.ReadFile(planningFixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "planning.xml"), raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	a := newTestApp(t, testConfig(t, dir))
	ctx := context.Background()

	first, err := a.IngestProvider(ctx, "stt-planning")
	if err != nil || first.Plannings != 1 {
		t.Fatalf("first poll: %+v %v", first, err)
	}
	second, err := a.IngestProvider(ctx, "stt-planning")
	if err != nil || second.Plannings != 0 {
		t.Fatalf("second poll should find nothing new: %+v %v", second, err)
	}
}

func TestUnknownProviderAndContent(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t, t.TempDir()))
	ctx := context.Background()

	if _, err := a.IngestFiles(ctx, "nope", []string{planningFixture}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown provider, got %v", err)
	}
	if _, err := a.Publish(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing content, got %v", err)
	}
}

func TestNewRejectsInvalidCron(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, t.TempDir())
	cfg.Ingest.CronExpression = "every now and then"
	if _, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected cron parse error")
	}
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Parallel()

	if err := Migrate(context.Background(), config.Config{}, nil); err == nil {
		t.Fatalf("expected error without dsn")
	}
}

func TestLedgerOnlyHidesFinalizer(t *testing.T) {
	t.Parallel()

	var pg ports.DeliveryLedger = storage.NewDeliveryRepository(nil)
	if _, ok := pg.(ports.LinkFinalizer); !ok {
		t.Fatalf("postgres ledger should finalize links")
	}
	var ledger ports.DeliveryLedger = ledgerOnly{pg}
	if _, ok := ledger.(ports.LinkFinalizer); ok {
		t.Fatalf("wrapped ledger must not expose FinalizeLink")
	}
}
