package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/logging"
	"github.com/giygas/medicine-recommender/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockSchedulerDataStore for testing scheduler
type mockSchedulerDataStore struct {
	dataset  *entities.Dataset
	loadedAt time.Time
}

func (m *mockSchedulerDataStore) GetDataset() *entities.Dataset {
	return m.dataset
}

func (m *mockSchedulerDataStore) GetCatalog() []string {
	if m.dataset == nil {
		return []string{}
	}
	return m.dataset.Names
}

func (m *mockSchedulerDataStore) GetLoadedAt() time.Time {
	return m.loadedAt
}

func (m *mockSchedulerDataStore) GetServerStartTime() time.Time {
	return time.Time{}
}

func (m *mockSchedulerDataStore) GetQualityReport() *interfaces.DataQualityReport {
	return nil
}

func (m *mockSchedulerDataStore) IsLoaded() bool {
	return m.dataset != nil
}

// mockLimiter counts cleanups and reports a fixed number of clients
type mockLimiter struct {
	calls   atomic.Int32
	clients int
}

func (m *mockLimiter) Cleanup() int {
	m.calls.Add(1)
	return m.clients
}

func TestNewScheduler(t *testing.T) {
	store := &mockSchedulerDataStore{}
	limiter := &mockLimiter{}

	s := NewScheduler(store, limiter)

	if s == nil {
		t.Fatal("NewScheduler returned nil")
	}

	if s.dataStore != store {
		t.Error("DataStore not set correctly")
	}

	if s.limiter != limiter {
		t.Error("Limiter not set correctly")
	}

	if s.scheduler == nil {
		t.Error("gocron scheduler not initialized")
	}
}

func TestSchedulerStartRunsJobs(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{
		dataset:  entities.NewDataset([]string{"A", "B", "C"}, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}),
		loadedAt: time.Now(),
	}
	limiter := &mockLimiter{clients: 4}

	s := NewScheduler(store, limiter)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if got := len(s.scheduler.Jobs()); got != 2 {
		t.Errorf("Expected 2 scheduled jobs, got %d", got)
	}

	// jobs start immediately
	deadline := time.Now().Add(2 * time.Second)
	for limiter.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if limiter.calls.Load() == 0 {
		t.Error("Rate limiter cleanup should have run")
	}
}

func TestCleanupRateLimiter(t *testing.T) {
	logging.InitLogger("")

	limiter := &mockLimiter{clients: 12}
	s := NewScheduler(&mockSchedulerDataStore{}, limiter)

	s.cleanupRateLimiter()

	if limiter.calls.Load() != 1 {
		t.Errorf("Expected 1 cleanup, got %d", limiter.calls.Load())
	}
	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 12 {
		t.Errorf("Expected bucket gauge 12, got %v", got)
	}
}

func TestCleanupRateLimiterWithoutLimiter(t *testing.T) {
	logging.InitLogger("")

	s := NewScheduler(&mockSchedulerDataStore{}, nil)
	s.cleanupRateLimiter()
}

func TestCheckDataset(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{
		dataset:  entities.NewDataset([]string{"A", "B"}, [][]float64{{1, 0}, {0, 1}}),
		loadedAt: time.Now(),
	}
	s := NewScheduler(store, nil)

	s.checkDataset()
	if got := testutil.ToFloat64(metrics.CatalogMedicines); got != 2 {
		t.Errorf("Expected catalog gauge 2, got %v", got)
	}

	store.dataset = nil
	s.checkDataset()
	if got := testutil.ToFloat64(metrics.CatalogMedicines); got != 0 {
		t.Errorf("Expected catalog gauge 0 without dataset, got %v", got)
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewScheduler(&mockSchedulerDataStore{}, nil)
	s.Stop()
}
