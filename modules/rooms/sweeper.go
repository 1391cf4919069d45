package rooms

import (
	"context"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// DefaultSweepInterval is how often expired password leases are dropped.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically removes expired password leases from a Coordinator.
type Sweeper struct {
	coord    *Coordinator
	interval time.Duration
	logger   types.Logger

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a Sweeper. A non-positive interval uses DefaultSweepInterval.
func NewSweeper(coord *Coordinator, interval time.Duration, logger types.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		coord:    coord,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	go s.run()
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	swept := s.coord.SweepExpiredLeases()
	if len(swept) > 0 {
		s.logger.Info("Swept expired password leases", "count", len(swept))
	}
}

// Stop halts the loop and waits for it to exit or for ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.stopChan == nil {
		return nil
	}

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	select {
	case <-s.doneChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
