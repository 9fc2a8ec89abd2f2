package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dompet/internal/log"
)

// Sweeper periodically runs SyncWorker.ProcessPending.
type Sweeper struct {
	worker   *SyncWorker
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(worker *SyncWorker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{worker: worker, interval: interval, logger: worker.logger}
}

// Start begins the loop. Returns an error if already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx, s.stopCh, s.doneCh)

	s.logger.InfoContext(ctx, "Pending sync sweeper started", "interval", s.interval)
	return nil
}

// Stop signals the loop and waits for it, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Pending sync sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Pending sync sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.worker.ProcessPending(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Pending sync sweep failed", log.FieldError, err)
			}
		}
	}
}
