package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskhive/taskhive/pkg/observability"
)

// RetentionPolicy controls how long audit entries are kept
type RetentionPolicy struct {
	RetentionDays int
	// Schedule is a cron expression; defaults to daily at 03:00
	Schedule string
}

// DefaultRetentionPolicy keeps 90 days of history
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		RetentionDays: 90,
		Schedule:      "0 3 * * *",
	}
}

// RetentionJob periodically prunes old audit entries
type RetentionJob struct {
	store  Store
	policy RetentionPolicy
	logger *observability.Logger
	cron   *cron.Cron
}

// NewRetentionJob creates a retention job; call Start to schedule it
func NewRetentionJob(store Store, policy RetentionPolicy, logger *observability.Logger) *RetentionJob {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if policy.RetentionDays <= 0 {
		policy.RetentionDays = DefaultRetentionPolicy().RetentionDays
	}
	if policy.Schedule == "" {
		policy.Schedule = DefaultRetentionPolicy().Schedule
	}
	return &RetentionJob{
		store:  store,
		policy: policy,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the cleanup on the policy's cron expression
func (j *RetentionJob) Start() error {
	_, err := j.cron.AddFunc(j.policy.Schedule, func() {
		j.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.WithFields(map[string]interface{}{
		"schedule":       j.policy.Schedule,
		"retention_days": j.policy.RetentionDays,
	}).Info("audit retention job started")
	return nil
}

// RunOnce performs a single cleanup pass. Failures are logged; retention
// is maintenance, not a request path, so nothing propagates.
func (j *RetentionJob) RunOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -j.policy.RetentionDays)
	deleted, err := j.store.Cleanup(ctx, cutoff)
	if err != nil {
		j.logger.WithError(err).Error("audit retention cleanup failed")
		return
	}
	if deleted > 0 {
		j.logger.WithField("deleted", deleted).Info("audit entries pruned")
	}
}

// Stop halts the schedule and waits for a running cleanup to finish
func (j *RetentionJob) Stop(ctx context.Context) error {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
