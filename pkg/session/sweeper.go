package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/assessment-platform/enginer/pkg/config"
)

// Sweeper periodically runs ExpireSweep so grace-expired submissions get
// auto-submitted even when no candidate request happens to touch them.
type Sweeper struct {
	manager *Manager
	cfg     *config.SessionConfig

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper constructs a Sweeper over manager.
func NewSweeper(manager *Manager, cfg *config.SessionConfig) *Sweeper {
	return &Sweeper{manager: manager, cfg: cfg}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Expire sweeper started", "interval", s.cfg.ExpireSweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Expire sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.ExpireSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.manager.ExpireSweep(ctx)
	if err != nil {
		slog.Error("Expire sweep failed", "error", err)
		return
	}
	if swept > 0 {
		slog.Info("Expire sweep auto-submitted grace-expired submissions", "count", swept)
	}
}
