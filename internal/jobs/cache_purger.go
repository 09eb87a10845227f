package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/cache"
)

const (
	DefaultPurgeSchedule = "@every 10m"
	defaultPurgeTimeout  = time.Minute
)

// CachePurgerJob deletes expired cache entries on a cron schedule. Reads
// already treat expired entries as absent; the purge only reclaims space.
type CachePurgerJob struct {
	purger cache.Purger
	config *PurgerConfig
	logger *zap.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
}

type PurgerConfig struct {
	Schedule string        // cron spec or descriptor, e.g. "@every 10m"
	Enabled  bool          // whether to schedule purges at all
	Timeout  time.Duration // per-run deadline
}

func NewCachePurgerJob(purger cache.Purger, config *PurgerConfig, logger *zap.Logger) *CachePurgerJob {
	if config.Schedule == "" {
		config.Schedule = DefaultPurgeSchedule
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultPurgeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachePurgerJob{
		purger: purger,
		config: config,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start begins the scheduled purge job
func (j *CachePurgerJob) Start() error {
	if !j.config.Enabled || j.purger == nil {
		j.logger.Info("Cache purge is disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunPurge(context.Background()); err != nil {
			j.logger.Warn("Cache purge failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cache purge: %w", err)
	}

	j.cron.Start()
	j.mu.Lock()
	j.running = true
	j.mu.Unlock()
	j.logger.Info("Cache purger started", zap.String("schedule", j.config.Schedule))

	return nil
}

// Stop stops the scheduler and waits for an in-flight purge to finish.
func (j *CachePurgerJob) Stop() {
	j.mu.Lock()
	running := j.running
	j.running = false
	j.mu.Unlock()
	if !running {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("Cache purger stopped")
}

// RunPurge performs a single purge run
func (j *CachePurgerJob) RunPurge(ctx context.Context) (int64, error) {
	if j.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	removed, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	if removed > 0 {
		j.logger.Info("Purged expired cache entries", zap.Int64("removed", removed))
	}
	return removed, nil
}
