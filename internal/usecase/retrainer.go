package usecase

import (
	"context"
	"time"

	drepo "CoinPilot/internal/domain/repository"
	domsvc "CoinPilot/internal/domain/service"
	xlogger "CoinPilot/pkg/logger"
)

// Retrainer periodically asks the model service to reload a freshly trained
// model. Training itself happens offline in the service; this loop only
// triggers the swap and drops stale cached predictions.
type Retrainer struct {
	admin    domsvc.ModelAdmin // nil when no model service is configured
	interval time.Duration
	metrics  drepo.Metrics
	logger   *xlogger.Logger
}

func NewRetrainer(admin domsvc.ModelAdmin, interval time.Duration, metrics drepo.Metrics, logger *xlogger.Logger) *Retrainer {
	return &Retrainer{admin: admin, interval: interval, metrics: metrics, logger: logger}
}

// Start launches the retraining loop. The wait is a cancellable timer, so
// shutdown does not sit out a day-long sleep.
func (r *Retrainer) Start(ctx context.Context) {
	if r.admin == nil || r.interval <= 0 {
		return
	}
	go r.run(ctx)
}

func (r *Retrainer) run(ctx context.Context) {
	// reload once at startup so a model trained while we were down is
	// picked up immediately
	r.reload(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(ctx)
		}
	}
}

func (r *Retrainer) reload(ctx context.Context) {
	if err := r.admin.Reload(ctx); err != nil {
		r.metrics.RecordError("retrain")
		r.logger.Warn("model reload failed", xlogger.Error(err))
		return
	}
	r.logger.Info("model reloaded")
}
