package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/charge-sim-backend/internal/config"
	"github.com/jengzang/charge-sim-backend/internal/observability"
	"github.com/jengzang/charge-sim-backend/internal/service"
	"github.com/jengzang/charge-sim-backend/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T, requests int) *gin.Engine {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	metrics, err := observability.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := service.NewSimulationService(service.Deps{Store: st, Log: zap.NewNop(), Metrics: metrics})
	cfg := &config.Config{RateLimitRequests: requests, RateLimitWindow: time.Hour}
	return SetupRouter(cfg, svc, zap.NewNop(), metrics)
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := get(testRouter(t, 10), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(t, 10)
	get(r, "/api/v1/simulations")

	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `evsim_http_requests_total{method="GET",route="/api/v1/simulations",status="200"} 1`)
}

func TestRateLimitOnAPI(t *testing.T) {
	r := testRouter(t, 1)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/simulations").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/v1/simulations").Code)

	// Health and metrics are not limited
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
}
