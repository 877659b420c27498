// Package scheduler runs the maintenance jobs of the recommender: pruning idle
// rate limiter clients and watching that a dataset is being served.
package scheduler

import (
	"fmt"
	"time"

	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/logging"
	"github.com/giygas/medicine-recommender/metrics"
	"github.com/go-co-op/gocron"
)

const (
	RateLimiterCleanupInterval = 30 * time.Minute
	DatasetCheckInterval       = time.Hour
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler runs maintenance jobs using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	limiter   interfaces.ClientLimiter
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, limiter interfaces.ClientLimiter) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		limiter:   limiter,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start schedules the maintenance jobs and starts running them in the background
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(RateLimiterCleanupInterval).Do(s.cleanupRateLimiter); err != nil {
		logging.Error("Failed to schedule rate limiter cleanup", "error", err)
		return fmt.Errorf("failed to schedule rate limiter cleanup: %w", err)
	}

	if _, err := s.scheduler.Every(DatasetCheckInterval).Do(s.checkDataset); err != nil {
		logging.Error("Failed to schedule dataset check", "error", err)
		return fmt.Errorf("failed to schedule dataset check: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "jobs", len(s.scheduler.Jobs()))

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// cleanupRateLimiter drops idle clients from the rate limiter
func (s *Scheduler) cleanupRateLimiter() {
	if s.limiter == nil {
		return
	}

	remaining := s.limiter.Cleanup()
	metrics.RateLimiterBucketsTotal.Set(float64(remaining))
	logging.Debug("Rate limiter cleanup completed", "clients", remaining)
}

// checkDataset warns when no dataset is served and refreshes the catalog gauge
func (s *Scheduler) checkDataset() {
	if !s.dataStore.IsLoaded() {
		logging.Warn("No dataset is loaded, every lookup will fail")
		metrics.CatalogMedicines.Set(0)
		return
	}

	medicines := len(s.dataStore.GetCatalog())
	metrics.CatalogMedicines.Set(float64(medicines))
	logging.Debug("Dataset check completed",
		"medicines", medicines,
		"loaded_at", s.dataStore.GetLoadedAt().Format(time.RFC3339),
	)
}
