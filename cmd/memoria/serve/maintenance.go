package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/papercomputeco/memoria/pkg/memoria"
)

const rebuildTimeout = 30 * time.Minute

// maintenance periodically rebuilds the vector collections of every
// namespace under the registry root.
type maintenance struct {
	cron   *cron.Cron
	stores *memoria.Registry
	logger *slog.Logger
}

// newMaintenance schedules the rebuild. An empty schedule yields a
// maintenance that never runs.
func newMaintenance(stores *memoria.Registry, schedule string, log *slog.Logger) (*maintenance, error) {
	cl := cronLogger{log}
	m := &maintenance{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		stores: stores,
		logger: log,
	}

	if schedule == "" {
		log.Info("consistency rebuild disabled")
		return m, nil
	}

	if _, err := m.cron.AddFunc(schedule, m.rebuildAll); err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", schedule, err)
	}
	log.Info("consistency rebuild scheduled", "schedule", schedule)
	return m, nil
}

func (m *maintenance) Start() {
	m.cron.Start()
}

// Stop waits for a running rebuild to finish.
func (m *maintenance) Stop() {
	<-m.cron.Stop().Done()
}

func (m *maintenance) rebuildAll() {
	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	namespaces, err := m.stores.Namespaces()
	if err != nil {
		m.logger.Error("listing namespaces", "error", err)
		return
	}

	for _, ns := range namespaces {
		store, err := m.stores.Get(ns)
		if err != nil {
			m.logger.Error("opening namespace for rebuild", "namespace", ns, "error", err)
			continue
		}

		start := time.Now()
		if err := store.Rebuild(ctx); err != nil {
			m.logger.Error("rebuild failed", "namespace", ns, "error", err)
			continue
		}
		m.logger.Debug("rebuilt namespace", "namespace", ns, "duration", time.Since(start))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
