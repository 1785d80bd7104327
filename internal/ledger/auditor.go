package ledger

import (
	"context"
	"time"

	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

// DefaultAuditInterval is the default interval between projection audits
const DefaultAuditInterval = 15 * time.Minute

// ProjectionRepairer fixes bucket summaries that drifted from their history
type ProjectionRepairer interface {
	RepairProjections(ctx context.Context) (int, error)
}

// Auditor periodically checks that every bucket's cached totals match its
// latest history entry
type Auditor struct {
	repairer ProjectionRepairer
	interval time.Duration
	logger   *logger.Logger
}

// AuditorConfig holds configuration for the auditor
type AuditorConfig struct {
	Interval time.Duration
	Logger   *logger.Logger
}

// NewAuditor creates a new projection auditor
func NewAuditor(repairer ProjectionRepairer, config *AuditorConfig) *Auditor {
	interval := DefaultAuditInterval
	var log *logger.Logger

	if config != nil {
		if config.Interval > 0 {
			interval = config.Interval
		}
		log = config.Logger
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Auditor{
		repairer: repairer,
		interval: interval,
		logger:   log.WithField("component", "projection_auditor"),
	}
}

// Run audits immediately, then on every tick until the context is cancelled
func (a *Auditor) Run(ctx context.Context) {
	a.logger.Info("projection auditor started", "interval", a.interval)

	a.RunOnce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("projection auditor stopped")
			return
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single audit cycle
func (a *Auditor) RunOnce(ctx context.Context) {
	start := time.Now()

	repaired, err := a.repairer.RepairProjections(ctx)
	if err != nil {
		a.logger.Error("projection audit failed", "error", err, "repaired", repaired)
		return
	}

	if repaired > 0 {
		a.logger.Warn("projection audit repaired drifted buckets", "repaired", repaired, "duration", time.Since(start))
		return
	}
	a.logger.Debug("projection audit found no drift", "duration", time.Since(start))
}
