// Package health provides health checking functionality for the medicine recommender.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/medicine-recommender/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.DataStore) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
	}
}

// HealthCheck reports whether a dataset is being served.
// Quality issues are only reported in the details.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	ds := h.dataStore.GetDataset()
	loadedAt := h.dataStore.GetLoadedAt()
	startTime := h.dataStore.GetServerStartTime()

	switch {
	case ds == nil || ds.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"medicines": ds.Len(),
	}

	if ds != nil {
		data["source"] = ds.Source
		data["format"] = ds.Format
	}

	if !loadedAt.IsZero() {
		data["loaded_at"] = loadedAt.Format(time.RFC3339)
	}

	if !startTime.IsZero() {
		data["uptime_hours"] = math.Round(time.Since(startTime).Hours()*10) / 10
	}

	if report := h.dataStore.GetQualityReport(); report != nil {
		data["quality"] = map[string]any{
			"asymmetric_pairs":      report.AsymmetricPairs,
			"rows_without_self_max": len(report.RowsWithoutSelfMax),
			"zero_rows":             report.ZeroRows,
		}
	}

	return status, data, httpStatus
}
