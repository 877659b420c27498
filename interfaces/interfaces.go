// Package interfaces defines core abstractions for the medicine recommender
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/medicine-recommender/catalog/entities"
)

// DataQualityReport summarizes non-fatal oddities found in a loaded dataset
type DataQualityReport struct {
	Medicines          int
	AsymmetricPairs    int      // Pairs (i, j) where score(i, j) != score(j, i)
	RowsWithoutSelfMax []string // Medicines whose self-similarity is not the row maximum
	ZeroRows           int      // Rows where every score is zero
}

// HasIssues reports whether the report contains anything worth logging
func (r *DataQualityReport) HasIssues() bool {
	if r == nil {
		return false
	}
	return r.AsymmetricPairs > 0 || len(r.RowsWithoutSelfMax) > 0 || r.ZeroRows > 0
}

// DataStore defines the contract for the application state.
// The dataset is loaded once at startup and is read-only afterwards.
type DataStore interface {
	GetDataset() *entities.Dataset
	GetCatalog() []string
	GetLoadedAt() time.Time
	GetServerStartTime() time.Time
	GetQualityReport() *DataQualityReport
	IsLoaded() bool
}

// DatasetLoader obtains the catalog and similarity matrix from storage.
type DatasetLoader interface {
	Load(ctx context.Context) (*entities.Dataset, error)

	// Source describes where the dataset is read from, for logs and health
	Source() string
}

// Recommender returns the medicines most similar to a given one.
// A name missing from the catalog yields an *entities.NotFoundError.
type Recommender interface {
	Recommend(name string) ([]string, error)
}

// RandomSource draws uniformly distributed numbers in [low, high].
type RandomSource interface {
	Uniform(low, high float64) float64
}

// PriceSynthesizer produces one synthetic quote per name, in input order.
type PriceSynthesizer interface {
	GeneratePrices(names []string) []entities.PriceQuote
}

// ClientLimiter is the maintenance side of the per-client rate limiter
type ClientLimiter interface {
	// Cleanup drops idle clients and returns how many remain
	Cleanup() int
}

// Scheduler defines the contract for background maintenance jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ServeIndex(w http.ResponseWriter, r *http.Request)
	ServeCatalog(w http.ResponseWriter, r *http.Request)
	ServeRecommendations(w http.ResponseWriter, r *http.Request)
	ServePrices(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ValidateDataset rejects datasets that cannot be served
	ValidateDataset(ds *entities.Dataset) error

	// ReportDataQuality lists non-fatal issues of a valid dataset
	ReportDataQuality(ds *entities.Dataset) *DataQualityReport

	// ValidateInput validates a user supplied medicine name
	ValidateInput(input string) error
}
