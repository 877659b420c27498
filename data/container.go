// Package data holds the application state of the recommender: the dataset
// snapshot served by every request, stored behind atomics so readers never
// take a lock.
package data

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/logging"
	"github.com/giygas/medicine-recommender/metrics"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// ErrLoadInProgress is returned by LoadFrom while another load runs
var ErrLoadInProgress = errors.New("dataset load already in progress")

// DataContainer holds the dataset with atomic pointers
type DataContainer struct {
	dataset         atomic.Pointer[entities.Dataset]
	report          atomic.Pointer[interfaces.DataQualityReport]
	loadedAt        atomic.Value // time.Time
	serverStartTime atomic.Value // time.Time
	loading         atomic.Bool
}

// NewDataContainer creates a new DataContainer with no dataset
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.loadedAt.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetDataset returns the current dataset, nil before the first load
func (dc *DataContainer) GetDataset() *entities.Dataset {
	return dc.dataset.Load()
}

// GetCatalog returns the medicine names in catalog order
func (dc *DataContainer) GetCatalog() []string {
	if ds := dc.dataset.Load(); ds != nil {
		return ds.Names
	}

	logging.Warn("Catalog requested before the dataset was loaded")
	return []string{}
}

// GetLoadedAt returns when the current dataset was stored
func (dc *DataContainer) GetLoadedAt() time.Time {
	if v := dc.loadedAt.Load(); v != nil {
		if loadedAt, ok := v.(time.Time); ok {
			return loadedAt
		}
	}

	logging.Warn("Could not get the loaded at value")
	return time.Time{}
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

func (dc *DataContainer) GetQualityReport() *interfaces.DataQualityReport {
	return dc.report.Load()
}

func (dc *DataContainer) IsLoaded() bool {
	return dc.dataset.Load() != nil
}

// IsLoading returns true while LoadFrom runs
func (dc *DataContainer) IsLoading() bool {
	return dc.loading.Load()
}

// Store atomically replaces the dataset and its quality report
func (dc *DataContainer) Store(ds *entities.Dataset, report *interfaces.DataQualityReport) {
	dc.dataset.Store(ds)
	dc.report.Store(report)
	dc.loadedAt.Store(time.Now())
	metrics.CatalogMedicines.Set(float64(ds.Len()))
}

// BeginLoad marks the start of a load.
// Returns true if the load can proceed, false if another one is in progress
func (dc *DataContainer) BeginLoad() bool {
	return dc.loading.CompareAndSwap(false, true)
}

// EndLoad marks the end of a load
func (dc *DataContainer) EndLoad() {
	dc.loading.Store(false)
}

// LoadFrom reads a dataset, validates it and makes it the current snapshot.
// Nothing is stored when loading or validation fails.
func (dc *DataContainer) LoadFrom(ctx context.Context, loader interfaces.DatasetLoader, validator interfaces.DataValidator) error {
	if !dc.BeginLoad() {
		return ErrLoadInProgress
	}
	defer dc.EndLoad()

	start := time.Now()
	logging.Info("Loading dataset", "source", loader.Source())

	ds, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset from %s: %w", loader.Source(), err)
	}

	if err := validator.ValidateDataset(ds); err != nil {
		return fmt.Errorf("invalid dataset %s: %w", loader.Source(), err)
	}

	report := validator.ReportDataQuality(ds)
	if report.HasIssues() {
		logging.Warn("Dataset has quality issues",
			"asymmetric_pairs", report.AsymmetricPairs,
			"rows_without_self_max", len(report.RowsWithoutSelfMax),
			"zero_rows", report.ZeroRows,
		)
		for _, name := range report.RowsWithoutSelfMax {
			logging.Debug("Self-similarity is not the row maximum", "medicine", name)
		}
	}

	dc.Store(ds, report)

	logging.Info("Dataset loaded",
		"medicines", ds.Len(),
		"format", ds.Format,
		"duration", time.Since(start),
	)
	return nil
}
