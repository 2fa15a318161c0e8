package serve

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/support/supporthttp"
)

func Test_ServeMetrics(t *testing.T) {
	mMonitorService := &monitor.MockMonitorService{}

	mMonitorService.On("GetMetricHttpHandler").
		Return(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), nil).Once()

	opts := MetricsServeOptions{
		Port:           8002,
		MetricType:     "MOCKMETRICTYPE",
		MonitorService: mMonitorService,
	}

	// Mock supporthttp.Run
	mHTTPServer := mockHTTPServer{}
	mHTTPServer.On("Run", mock.AnythingOfType("supporthttp.Config")).Run(func(args mock.Arguments) {
		conf, ok := args.Get(0).(supporthttp.Config)
		require.True(t, ok, "should be of type supporthttp.Config")
		assert.Equal(t, ":8002", conf.ListenAddr)
		assert.Equal(t, time.Second*5, conf.ReadTimeout)
		assert.Equal(t, time.Second*10, conf.WriteTimeout)
		assert.Equal(t, time.Minute*2, conf.IdleTimeout)
		assert.NotNil(t, conf.Handler)
	}).Once()

	// test and assert
	err := MetricsServe(opts, &mHTTPServer)
	require.NoError(t, err)
	mHTTPServer.AssertExpectations(t)
	mMonitorService.AssertExpectations(t)
}

func Test_handleMetricsHttp(t *testing.T) {
	mMonitorService := &monitor.MockMonitorService{}
	mMonitorService.On("GetMetricHttpHandler").
		Return(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), nil).Once()

	mux := handleMetricsHttp(MetricsServeOptions{
		MetricType:     monitor.MetricTypePrometheus,
		MonitorService: mMonitorService,
	})

	t.Run("🎉 serves the metrics endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("🎉 serves a liveness check that does not touch the database", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status": "pass", "service_id": "metrics"}`, rr.Body.String())
	})

	mMonitorService.AssertExpectations(t)
}
