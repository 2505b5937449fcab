package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"preflight/internal/logger"
)

// Reaper is what the reaper job needs from the questionnaire service
type Reaper interface {
	ReapStale(ctx context.Context, maxAge time.Duration, now time.Time) (int, error)
}

// ReaperJob periodically deletes abandoned in-progress questionnaires
type ReaperJob struct {
	reaper   Reaper
	schedule string
	maxAge   time.Duration
	timeout  time.Duration
	cron     *cron.Cron
	log      *logger.Logger
	now      func() time.Time
}

// NewReaperJob returns a job that is disabled when maxAge is zero
func NewReaperJob(reaper Reaper, schedule string, maxAge time.Duration, log *logger.Logger) *ReaperJob {
	return &ReaperJob{
		reaper:   reaper,
		schedule: schedule,
		maxAge:   maxAge,
		timeout:  time.Minute,
		cron:     cron.New(),
		log:      log,
		now:      time.Now,
	}
}

func (j *ReaperJob) Enabled() bool {
	return j.maxAge > 0
}

// Start schedules the job. It is a no-op when the job is disabled.
func (j *ReaperJob) Start() error {
	if !j.Enabled() {
		j.log.Info("questionnaire reaper disabled")
		return nil
	}

	_, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.log.Error("questionnaire reaper failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}

	j.cron.Start()
	j.log.Info("questionnaire reaper started", "schedule", j.schedule, "maxAge", j.maxAge.String())
	return nil
}

// Stop waits for a running pass to finish
func (j *ReaperJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce performs a single reaping pass
func (j *ReaperJob) RunOnce(ctx context.Context) (int, error) {
	if !j.Enabled() {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.reaper.ReapStale(ctx, j.maxAge, j.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.log.Info("reaped stale questionnaires", "count", n)
	}
	return n, nil
}
