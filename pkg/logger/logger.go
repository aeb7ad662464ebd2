// Package logger adapts slog to the logger interfaces of third-party libraries.
package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Migrate satisfies the golang-migrate Logger interface.
type Migrate struct {
	log     *slog.Logger
	verbose bool
}

// NewMigrate tags every line with the migrate component.
func NewMigrate(log *slog.Logger, verbose bool) *Migrate {
	if log == nil {
		log = slog.Default()
	}
	return &Migrate{log: log.With("component", "migrate"), verbose: verbose}
}

func (m *Migrate) Printf(format string, v ...interface{}) {
	m.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m *Migrate) Verbose() bool {
	return m.verbose
}
