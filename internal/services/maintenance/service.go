// -----------------------------------------------------------------------
// Maintenance - scheduled background upkeep for sessions, analytics and
// storage
// -----------------------------------------------------------------------

package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
)

const defaultSchedule = "0 3 * * *"

// SessionSweeper is the slice of the session service maintenance needs.
type SessionSweeper interface {
	Sweep() int
}

// Service runs the periodic maintenance sweep: expired session cleanup,
// interaction retention pruning and storage garbage collection.
type Service struct {
	config    *common.MaintenanceConfig
	analytics interfaces.AnalyticsService
	sessions  SessionSweeper
	storage   interfaces.StorageManager
	logger    arbor.ILogger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewService creates a maintenance service over the given collaborators.
func NewService(config *common.MaintenanceConfig, analytics interfaces.AnalyticsService, sessions SessionSweeper, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		config:    config,
		analytics: analytics,
		sessions:  sessions,
		storage:   storage,
		logger:    logger,
	}
}

// Start schedules the maintenance sweep. A disabled config leaves the
// scheduler off without error; an invalid schedule is rejected.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("maintenance already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Maintenance disabled")
		return nil
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	if err := common.ValidateMaintenanceSchedule(schedule); err != nil {
		return fmt.Errorf("invalid maintenance schedule: %w", err)
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to add maintenance job: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", schedule).Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false

	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// RunOnce executes one maintenance sweep immediately. Individual task
// failures are logged and do not stop the remaining tasks.
func (s *Service) RunOnce() {
	started := time.Now()

	swept := s.sessions.Sweep()

	pruned, err := s.analytics.Prune(context.Background())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Interaction pruning failed")
	}

	if err := s.storage.GC(); err != nil {
		s.logger.Warn().Err(err).Msg("Storage garbage collection failed")
	}

	s.logger.Info().
		Int("sessions_swept", swept).
		Int("interactions_pruned", pruned).
		Dur("duration", time.Since(started)).
		Msg("Maintenance sweep complete")
}
