package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/service"
)

// InventorySyncer defines the sync operation run by the loop
type InventorySyncer interface {
	SyncInventory(ctx context.Context) (service.SyncResult, error)
}

// Syncer periodically pulls cluster nodes into the inventory
type Syncer struct {
	cfg      config.SyncConfig
	svc      InventorySyncer
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	failures int // consecutive failed runs
	mu       sync.Mutex
}

// New creates a new inventory syncer
func New(cfg config.SyncConfig, svc InventorySyncer, logger *slog.Logger) *Syncer {
	return &Syncer{
		cfg:    cfg,
		svc:    svc,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the sync loop in a background goroutine. The first run
// happens immediately.
func (s *Syncer) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("inventory sync is disabled")
		return
	}

	s.logger.Info("starting inventory syncer",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("timeout", s.cfg.Timeout),
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the syncer, waiting for a run in progress
func (s *Syncer) Stop() {
	if !s.cfg.Enabled {
		return
	}

	s.logger.Info("stopping inventory syncer")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("inventory syncer stopped")
}

// Failures returns the number of consecutive failed runs
func (s *Syncer) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.performSync(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.performSync(ctx)
		}
	}
}

// performSync executes a single sync under the configured timeout
func (s *Syncer) performSync(ctx context.Context) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	result, err := s.svc.SyncInventory(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil || len(result.Errors) > 0 {
		s.failures++
		attrs := []any{
			slog.Int("consecutive_failures", s.failures),
			slog.Int("failed_clusters", len(result.Errors)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		s.logger.Warn("inventory sync failed", attrs...)
		return
	}

	if s.failures > 0 {
		s.logger.Info("inventory sync recovered",
			slog.Int("previous_failures", s.failures),
		)
	}
	s.failures = 0
}
