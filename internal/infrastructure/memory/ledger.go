package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// Ledger is the in-memory delivery table.
type Ledger struct {
	mu   sync.Mutex
	rows []domain.Delivery
}

var _ ports.DeliveryLedger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Find(_ context.Context, filter domain.DeliveryFilter) ([]domain.Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Delivery
	for _, row := range l.rows {
		if filter.Matches(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *Ledger) Post(_ context.Context, rows []domain.Delivery) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now()
		}
		l.rows = append(l.rows, row)
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (l *Ledger) Delete(_ context.Context, filter domain.DeliveryFilter) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.rows[:0]
	removed := 0
	for _, row := range l.rows {
		if filter.Matches(row) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	l.rows = kept
	return removed, nil
}

// Rows returns a snapshot of every row.
func (l *Ledger) Rows() []domain.Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Delivery(nil), l.rows...)
}
