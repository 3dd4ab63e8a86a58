package router

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/switchboard/internal/observability"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner is the checkpoint surface the retention sweeper needs
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper periodically prunes superseded checkpoints. The latest snapshot
// per thread always survives; only audit history ages out.
type Sweeper struct {
	cron   *cron.Cron
	store  Pruner
	maxAge time.Duration
	logger zerolog.Logger
}

// NewSweeper schedules checkpoint pruning on a standard 5-field cron
// expression.
func NewSweeper(store Pruner, schedule string, maxAge time.Duration, logger zerolog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("pruner is required")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention age must be positive")
	}

	s := &Sweeper{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start begins the schedule
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info().Dur("max_age", s.maxAge).Msg("Retention sweeper started")
}

// Stop halts the schedule, waiting for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Retention sweeper stopped")
}

// Sweep runs one pruning pass immediately
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	pruned, err := s.store.Prune(ctx, s.maxAge)
	if err != nil {
		return 0, err
	}
	observability.RecordCheckpointsPruned(int(pruned))
	return pruned, nil
}

func (s *Sweeper) sweep() {
	pruned, err := s.Sweep(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Checkpoint pruning failed")
		return
	}
	s.logger.Info().Int64("pruned", pruned).Msg("Checkpoint pruning completed")
}
