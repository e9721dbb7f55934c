package scheduler

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/notifications"
)

// staleEndpointAge is how long an inactive endpoint may sit unused before the
// nightly sweep removes it
const staleEndpointAge = 30 * 24 * time.Hour

// Scheduler handles periodic background jobs for the delivery engine
type Scheduler struct {
	cron         *cron.Cron
	Registry     *notifications.Registry
	Orchestrator *notifications.Orchestrator
	instanceID   string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(registry *notifications.Registry, orchestrator *notifications.Orchestrator) *Scheduler {
	// Identify this pod in logs when several replicas run the same jobs
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		Registry:     registry,
		Orchestrator: orchestrator,
		instanceID:   instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Sweep stale inactive endpoints daily at 2 AM UTC
	_, err := s.cron.AddFunc("0 2 * * *", s.sweepStaleEndpoints)
	if err != nil {
		zap.S().Errorw("failed to register endpoint sweep job", "error", err)
	}

	// Pick up due broadcasts every minute. The claim on each broadcast is a
	// conditional status update, so overlapping instances are safe.
	_, err = s.cron.AddFunc("* * * * *", s.processDueBroadcasts)
	if err != nil {
		zap.S().Errorw("failed to register broadcast pickup job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Delivery scheduler started")
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Delivery scheduler stopped")
}

// sweepStaleEndpoints removes inactive endpoints that have not been used in
// 30 days
func (s *Scheduler) sweepStaleEndpoints() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	zap.S().Infow("Running stale endpoint sweep", "instance", s.instanceID)

	removed, err := s.Registry.SweepStale(ctx, staleEndpointAge)
	if err != nil {
		zap.S().Errorw("stale endpoint sweep failed", "error", err)
		return
	}

	zap.S().Infow("Stale endpoint sweep complete", "removed", removed)
}

// processDueBroadcasts claims and runs every broadcast whose scheduled time
// has arrived
func (s *Scheduler) processDueBroadcasts() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	processed, err := s.Orchestrator.ProcessDue(ctx)
	if err != nil {
		zap.S().Errorw("broadcast pickup failed", "error", err)
		return
	}
	if processed > 0 {
		zap.S().Infow("Processed due broadcasts", "count", processed, "instance", s.instanceID)
	}
}
