// Package handlers provides HTTP request handlers for the medicine recommender.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/logging"
	"github.com/go-chi/chi/v5"
)

const (
	// MedicineField is the query parameter and form field carrying the selection
	MedicineField = "medicine"

	// MaxPriceNames bounds the names accepted by the prices endpoint
	MaxPriceNames = 20
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	recommender   interfaces.Recommender
	synthesizer   interfaces.PriceSynthesizer
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	dataStore interfaces.DataStore,
	validator interfaces.DataValidator,
	recommender interfaces.Recommender,
	synthesizer interfaces.PriceSynthesizer,
	healthChecker interfaces.HealthChecker,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		recommender:   recommender,
		synthesizer:   synthesizer,
		healthChecker: healthChecker,
	}
}

// PageResponse is everything the medicine page shows.
// SelectedName is null when nothing was selected.
type PageResponse struct {
	Catalog         []string              `json:"catalog"`
	Recommendations []string              `json:"recommendations"`
	Prices          []entities.PriceQuote `json:"prices"`
	SelectedName    *string               `json:"selected_name"`
	Error           string                `json:"error,omitempty"`
}

// CatalogResponse lists every medicine that can be selected
type CatalogResponse struct {
	Count     int      `json:"count"`
	Medicines []string `json:"medicines"`
}

// RecommendationsResponse holds the similar medicines of one medicine
type RecommendationsResponse struct {
	Medicine        string   `json:"medicine"`
	Recommendations []string `json:"recommendations"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime,omitempty"`
	Data   map[string]any `json:"data"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// selectedMedicine reads the selection of a page request.
// GET takes it from the query string, POST from the form body.
func selectedMedicine(r *http.Request) (string, bool, error) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			return "", false, fmt.Errorf("invalid form: %w", err)
		}
		return r.PostForm.Get(MedicineField), true, nil
	}

	values, ok := r.URL.Query()[MedicineField]
	if !ok || len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

// ServeIndex serves the medicine page: the catalog and, for a selected
// medicine, its recommendations and the prices of all shown medicines.
func (h *HTTPHandlerImpl) ServeIndex(w http.ResponseWriter, r *http.Request) {
	page := PageResponse{
		Catalog:         h.dataStore.GetCatalog(),
		Recommendations: []string{},
		Prices:          []entities.PriceQuote{},
	}

	name, selected, err := selectedMedicine(r)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !selected {
		h.RespondWithJSON(w, http.StatusOK, page)
		return
	}

	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "medicine", name, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page.SelectedName = &name

	recommendations, err := h.recommender.Recommend(name)
	if err != nil {
		if errors.Is(err, entities.ErrMedicineNotFound) {
			page.Error = entities.ErrMedicineNotFound.Error()
			h.RespondWithJSON(w, http.StatusNotFound, page)
			return
		}
		logging.Error("Recommendation failed", "medicine", name, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	shown := append([]string{name}, recommendations...)
	page.Recommendations = recommendations
	page.Prices = h.synthesizer.GeneratePrices(shown)

	h.RespondWithJSON(w, http.StatusOK, page)
}

// ServeCatalog returns every medicine name in catalog order
func (h *HTTPHandlerImpl) ServeCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := h.dataStore.GetCatalog()
	h.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Count:     len(catalog),
		Medicines: catalog,
	})
}

// ServeRecommendations returns the medicines most similar to {name}
func (h *HTTPHandlerImpl) ServeRecommendations(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// chi matches on RawPath when the request path needed escaping
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			h.RespondWithError(w, http.StatusBadRequest, "Invalid medicine name encoding")
			return
		}
		name = unescaped
	}

	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "medicine", name, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recommendations, err := h.recommender.Recommend(name)
	if err != nil {
		var notFound *entities.NotFoundError
		if errors.As(err, &notFound) {
			h.RespondWithError(w, http.StatusNotFound, notFound.Error())
			return
		}
		logging.Error("Recommendation failed", "medicine", name, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, RecommendationsResponse{
		Medicine:        name,
		Recommendations: recommendations,
	})
}

// ServePrices returns synthetic quotes for the repeated name query parameter.
// Names do not need to be in the catalog.
func (h *HTTPHandlerImpl) ServePrices(w http.ResponseWriter, r *http.Request) {
	names := r.URL.Query()["name"]
	if len(names) == 0 {
		h.RespondWithError(w, http.StatusBadRequest, "at least one name parameter is required")
		return
	}
	if len(names) > MaxPriceNames {
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("too many names (max %d)", MaxPriceNames))
		return
	}

	for _, name := range names {
		if err := h.validator.ValidateInput(name); err != nil {
			logging.Warn("Unusual user input", "name", name, "error", err)
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	h.RespondWithJSON(w, http.StatusOK, h.synthesizer.GeneratePrices(names))
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status: status,
		Data:   data,
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		response.Uptime = formatUptimeHuman(time.Since(start))
	}

	h.RespondWithJSON(w, httpStatus, response)
}
