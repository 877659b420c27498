package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/config"
	"github.com/giygas/medicine-recommender/data"
	"github.com/giygas/medicine-recommender/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		Address:           "127.0.0.1",
		Env:               config.EnvTest,
		LogLevel:          "info",
		MaxRequestBody:    1048576,
		MaxHeaderSize:     1048576,
		PriceSeed:         1,
		RateLimitRate:     3,
		RateLimitCapacity: 1000,
	}
}

func loadedContainer() *data.DataContainer {
	dc := data.NewDataContainer()
	dc.Store(entities.NewDataset(
		[]string{"Dolo 650", "Crocin", "Calpol"},
		[][]float64{{1, 0.8, 0.6}, {0.8, 1, 0.4}, {0.6, 0.4, 1}},
	), nil)
	return dc
}

// TestNewServer tests server creation
func TestNewServer(t *testing.T) {
	logging.InitLogger("")

	cfg := testConfig()
	dc := loadedContainer()

	server := NewServer(cfg, dc)

	if server == nil {
		t.Fatal("Server should not be nil")
	}

	if server.server.Addr != cfg.Address+":"+cfg.Port {
		t.Errorf("Expected server address %s, got %s", cfg.Address+":"+cfg.Port, server.server.Addr)
	}

	if server.dataContainer != dc {
		t.Error("Data container should be set correctly")
	}

	if server.config != cfg {
		t.Error("Config should be set correctly")
	}

	if server.router == nil {
		t.Error("Router should not be nil")
	}

	if server.handler == nil {
		t.Error("HTTP handler should not be nil")
	}

	if server.RateLimiter() == nil {
		t.Error("Rate limiter should not be nil")
	}
}

// TestSetupRoutes checks every route through the full middleware chain
func TestSetupRoutes(t *testing.T) {
	logging.InitLogger("")

	server := NewServer(testConfig(), loadedContainer())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"index", http.MethodGet, "/", http.StatusOK},
		{"index with selection", http.MethodGet, "/?medicine=Crocin", http.StatusOK},
		{"index unknown medicine", http.MethodGet, "/?medicine=Unknown", http.StatusNotFound},
		{"catalog", http.MethodGet, "/medicines", http.StatusOK},
		{"recommendations", http.MethodGet, "/medicines/Calpol/recommendations", http.StatusOK},
		{"prices", http.MethodGet, "/prices?name=Crocin&name=Calpol", http.StatusOK},
		{"prices without names", http.MethodGet, "/prices", http.StatusBadRequest},
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown route", http.MethodGet, "/unknown", http.StatusNotFound},
		{"trailing slash", http.MethodGet, "/medicines/", http.StatusMovedPermanently},
		{"method not allowed", http.MethodDelete, "/medicines", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()

			server.Router().ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestIndexThroughServer(t *testing.T) {
	logging.InitLogger("")

	server := NewServer(testConfig(), loadedContainer())

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?medicine=Dolo+650", nil))

	var page struct {
		Catalog         []string          `json:"catalog"`
		Recommendations []string          `json:"recommendations"`
		Prices          []json.RawMessage `json:"prices"`
		SelectedName    string            `json:"selected_name"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if strings.Join(page.Recommendations, "|") != "Crocin|Calpol" {
		t.Errorf("Unexpected recommendations %v", page.Recommendations)
	}
	if len(page.Prices) != 3 {
		t.Errorf("Expected 3 quotes, got %d", len(page.Prices))
	}
	if page.SelectedName != "Dolo 650" {
		t.Errorf("Unexpected selected name %q", page.SelectedName)
	}

	if rr.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("Expected rate limit headers, got %v", rr.Header())
	}
}

func TestMetricsEndpointExposesDomainMetrics(t *testing.T) {
	logging.InitLogger("")

	server := NewServer(testConfig(), loadedContainer())

	server.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/medicines/Crocin/recommendations", nil))

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, name := range []string{
		"catalog_medicines 3",
		"recommendations_total",
		`http_request_total{method="GET",path="/medicines/{name}/recommendations",status="200"}`,
	} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %q in metrics output", name)
		}
	}
}

func TestRateLimitThroughServer(t *testing.T) {
	logging.InitLogger("")

	cfg := testConfig()
	cfg.RateLimitRate = 1
	cfg.RateLimitCapacity = 12
	server := NewServer(cfg, loadedContainer())

	codes := make([]int, 0, 3)
	for range 3 {
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/prices?name=Crocin", nil))
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("First two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Third request should be rate limited, got %d", codes[2])
	}

	if got := server.RateLimiter().Clients(); got != 1 {
		t.Errorf("Expected 1 tracked client, got %d", got)
	}
}

func TestProductionBlocksDirectAccess(t *testing.T) {
	logging.InitLogger("")

	cfg := testConfig()
	cfg.Env = config.EnvProduction
	server := NewServer(cfg, loadedContainer())

	direct := httptest.NewRequest(http.MethodGet, "/medicines", nil)
	direct.RemoteAddr = "203.0.113.5:4321"
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, direct)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected direct access to be blocked, got %d", rr.Code)
	}

	proxied := httptest.NewRequest(http.MethodGet, "/medicines", nil)
	proxied.RemoteAddr = "127.0.0.1:4321"
	proxied.Header.Set("X-Forwarded-For", "203.0.113.5")
	rr = httptest.NewRecorder()
	server.Router().ServeHTTP(rr, proxied)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected proxied request to pass, got %d", rr.Code)
	}
}

// TestServerLifecycle starts a real listener and shuts it down gracefully
func TestServerLifecycle(t *testing.T) {
	logging.InitLogger("")

	cfg := testConfig()
	cfg.Port = "0"
	dc := loadedContainer()
	server := NewServer(cfg, dc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	if dc.GetServerStartTime().IsZero() {
		t.Error("Start should record the server start time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start should return nil after shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop")
	}
}
