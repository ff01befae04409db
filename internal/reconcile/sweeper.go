// Package reconcile removes blobs left behind when an upload is never linked
// to a Resource, or when a crash interrupts a metadata write.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Target is implemented by service.ResourceCatalog.
type Target interface {
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}

// Config controls the sweep schedule.
type Config struct {
	// Interval between sweeps. Zero disables the sweeper.
	Interval time.Duration
	// Grace is how old an unreferenced blob must be before it is removed.
	Grace time.Duration
	// Timeout bounds a single sweep.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		Grace:    24 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// Sweeper runs one manager goroutine that sweeps on a fixed interval until
// Stop is called.
type Sweeper struct {
	target Target
	config Config
	logger *slog.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSweeper(target Target, cfg Config, logger *slog.Logger) *Sweeper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Sweeper{
		target: target,
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the manager. It is a no-op when Interval is zero or when
// called more than once.
func (s *Sweeper) Start() {
	if s.config.Interval <= 0 {
		s.logger.Info("orphan sweeper disabled")
		return
	}
	s.startOnce.Do(func() {
		s.logger.Info("starting orphan sweeper",
			slog.Duration("interval", s.config.Interval),
			slog.Duration("grace", s.config.Grace),
		)
		s.wg.Add(1)
		go s.manager()
	})
}

// Stop signals the manager and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Sweeper) manager() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs a single sweep and returns the number of blobs removed.
// The sweep is cancelled early if Stop is called.
func (s *Sweeper) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	removed, err := s.target.SweepOrphans(ctx, s.config.Grace)
	if err != nil {
		s.logger.Error("orphan sweep failed", slog.String("error", err.Error()), slog.Int("removed", removed))
		return removed
	}
	s.logger.Debug("orphan sweep finished", slog.Int("removed", removed))
	return removed
}
