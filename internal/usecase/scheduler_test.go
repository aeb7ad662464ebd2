package usecase

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"STTIngest/internal/domain"
	"STTIngest/internal/infrastructure/parser"
)

type captureDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *captureDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *captureDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerPollsProviderDirectory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "planning.xml"), []byte(planningXML(planningGUID, "")), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<planningItem"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	provider := planningProvider
	provider.Path = dir

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	driver := &captureDriver{}
	s := NewScheduler(driver, parser.NewFileSource(logger), h.ingester, []domain.IngestProvider{provider}, logger)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("expected job registered")
	}

	driver.job(time.Now())
	driver.job(time.Now())

	if item := h.planning(t, planningID); len(item.Coverages) != 1 {
		t.Fatalf("unexpected planning %+v", item)
	}

	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("expected driver stopped, got %v", err)
	}
}
