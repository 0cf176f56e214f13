package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/gainboard/internal/config"
	"github.com/mamadbah2/gainboard/internal/domain/models"
)

// Refresher runs one quote round and returns the settled snapshot.
type Refresher interface {
	FetchAllPrices(ctx context.Context) models.PortfolioSnapshot
}

// Broadcaster pushes a snapshot to connected subscribers.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Scheduler triggers quote rounds on a cron schedule, supplementing the
// user-triggered refresh. Each round is still a single best-effort attempt
// per source per row; this is not a retry policy.
type Scheduler struct {
	cron        *cron.Cron
	refresher   Refresher
	broadcaster Broadcaster
	cfg         config.RefreshConfig
	logger      *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.RefreshConfig, refresher Refresher, broadcaster Broadcaster, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:        cron.New(),
		refresher:   refresher,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start registers the refresh job and starts the cron loop. A missing
// schedule leaves auto-refresh disabled.
func (s *Scheduler) Start() {
	if s.cfg.CronSchedule == "" {
		s.logger.Info("auto-refresh disabled, no cron schedule configured")
		return
	}

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.refreshPrices); err != nil {
		s.logger.Error("failed to schedule auto-refresh", zap.Error(err))
		return
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))
	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) refreshPrices() {
	s.logger.Info("scheduled quote round starting")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snapshot := s.refresher.FetchAllPrices(ctx)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastJSON(snapshot)
	}

	s.logger.Info("scheduled quote round settled", zap.Int("rows", len(snapshot.Rows)))
}
