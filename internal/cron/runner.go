// Package cron runs periodic maintenance: pruning old evaluation runs and
// logging a usage summary.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/metrics"
	"github.com/gmsas95/playground/internal/store"
)

// Config holds maintenance runner settings.
type Config struct {
	Interval  time.Duration // time between maintenance passes
	Retention time.Duration // evaluation runs older than this are pruned
}

// Runner executes maintenance on a fixed ticker.
type Runner struct {
	config  Config
	store   *store.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

func NewRunner(config Config, st *store.Store, m *metrics.Metrics, logger *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Retention <= 0 {
		config.Retention = 30 * 24 * time.Hour
	}

	return &Runner{
		config:  config,
		store:   st,
		metrics: m,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the maintenance loop.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("maintenance runner already running")
	}

	r.running = true
	r.wg.Add(1)
	go r.run()

	return nil
}

// Stop stops the loop and waits for an in-flight pass to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	r.logger.Info("Maintenance runner stopped")
}

// IsRunning returns whether the runner is active.
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runOnce()
		}
	}
}

func (r *Runner) runOnce() {
	cutoff := time.Now().Add(-r.config.Retention)
	pruned, err := r.store.PruneEvaluationRuns(cutoff)
	if err != nil {
		r.logger.Error("Failed to prune evaluation runs", zap.Error(err))
	} else if pruned > 0 {
		r.logger.Info("Pruned evaluation runs",
			zap.Int64("count", pruned),
			zap.Time("cutoff", cutoff),
		)
	}

	r.logger.Info("Usage summary", zap.Any("metrics", r.metrics.Snapshot()))
}
