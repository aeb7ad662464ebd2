// Package signals is the in-process lifecycle dispatcher linking handlers
// subscribe to. Delivery is synchronous and in registration order; handler
// failures are logged and never reach the emitter.
package signals

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"STTIngest/internal/ports"
)

// Signal names.
const (
	PlanningIngested = "planning_ingested"
	ItemPublish      = "item_publish"
)

type planningHandler struct {
	name string
	fn   ports.PlanningIngestedHandler
}

type publishHandler struct {
	name string
	fn   ports.ItemPublishHandler
}

// Bus implements ports.Dispatcher.
type Bus struct {
	mu       sync.RWMutex
	planning []planningHandler
	publish  []publishHandler
	logger   *slog.Logger
}

var (
	_ ports.Dispatcher = (*Bus)(nil)
	_ ports.Emitter    = (*Bus)(nil)
)

// NewBus builds an empty dispatcher.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// OnPlanningIngested subscribes a handler to planning_ingested.
func (b *Bus) OnPlanningIngested(name string, handler ports.PlanningIngestedHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.planning = append(b.planning, planningHandler{name: name, fn: handler})
}

// OnItemPublish subscribes a handler to item_publish.
func (b *Bus) OnItemPublish(name string, handler ports.ItemPublishHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publish = append(b.publish, publishHandler{name: name, fn: handler})
}

// EmitPlanningIngested runs every planning_ingested handler and returns the number that failed.
func (b *Bus) EmitPlanningIngested(ctx context.Context, event ports.PlanningIngested) int {
	b.mu.RLock()
	handlers := append([]planningHandler(nil), b.planning...)
	b.mu.RUnlock()

	failed := 0
	for _, h := range handlers {
		fn := h.fn
		if err := b.invoke(PlanningIngested, h.name, func() error { return fn(ctx, event) }); err != nil {
			failed++
		}
	}
	return failed
}

// EmitItemPublish runs every item_publish handler and returns the number that failed.
func (b *Bus) EmitItemPublish(ctx context.Context, event ports.ItemPublish) int {
	b.mu.RLock()
	handlers := append([]publishHandler(nil), b.publish...)
	b.mu.RUnlock()

	failed := 0
	for _, h := range handlers {
		fn := h.fn
		if err := b.invoke(ItemPublish, h.name, func() error { return fn(ctx, event) }); err != nil {
			failed++
		}
	}
	return failed
}

func (b *Bus) invoke(signal, name string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			b.logger.Error("signal handler panicked", "signal", signal, "handler", name, "panic", r)
		}
	}()

	if err = call(); err != nil {
		b.logger.Error("signal handler failed", "signal", signal, "handler", name, "error", err)
	}
	return err
}
