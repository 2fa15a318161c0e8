package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/internal/support/log"
)

func Test_PrometheusClient_GetMetricType(t *testing.T) {
	mPrometheusClient := &prometheusClient{}

	metricType := mPrometheusClient.GetMetricType()
	assert.Equal(t, MetricTypePrometheus, metricType)
}

func Test_PrometheusClient_GetMetricHttpHandler(t *testing.T) {
	mPrometheusClient := &prometheusClient{}

	mHttpHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status": "OK"}`))
		require.NoError(t, err)
	})

	mPrometheusClient.httpHandler = mHttpHandler

	httpHandler := mPrometheusClient.GetMetricHttpHandler()

	r := chi.NewRouter()
	r.Get("/metrics", httpHandler.ServeHTTP)

	req, err := http.NewRequest("GET", "/metrics", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	wantJson := `{"status": "OK"}`
	assert.JSONEq(t, wantJson, rr.Body.String())
}

func Test_PrometheusClient_MonitorHttpRequestDuration(t *testing.T) {
	mPrometheusClient := &prometheusClient{}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(SummaryVecMetrics[HttpRequestDurationTag])

	mPrometheusClient.httpHandler = promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})

	mLabels := HttpRequestLabels{
		Status: "200",
		Route:  "/mock",
		Method: "GET",
	}

	// initializing durations as 1 second
	mDuration := time.Second * 1

	mPrometheusClient.MonitorHttpRequestDuration(mDuration, mLabels)

	r := chi.NewRouter()
	r.Get("/metrics", mPrometheusClient.httpHandler.ServeHTTP)

	req, err := http.NewRequest("GET", "/metrics", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	resp := rr.Result()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, data)
	body := string(data)

	sumMetric := `fikir_http_requests_duration_seconds_sum{method="GET",route="/mock",status="200"} 1`
	countMetric := `fikir_http_requests_duration_seconds_count{method="GET",route="/mock",status="200"} 1`

	assert.Contains(t, body, sumMetric)
	assert.Contains(t, body, countMetric)
}

func Test_PrometheusClient_MonitorDBQueryDuration(t *testing.T) {
	mPrometheusClient := &prometheusClient{}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(SummaryVecMetrics[SuccessfulQueryDurationTag])
	metricsRegistry.MustRegister(SummaryVecMetrics[FailureQueryDurationTag])

	mPrometheusClient.httpHandler = promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})

	mLabels := DBQueryLabels{
		QueryType: "SELECT",
	}

	// initializing durations as 1 second
	mDuration := time.Second * 1

	// setup metric handler
	r := chi.NewRouter()
	r.Get("/metrics", mPrometheusClient.httpHandler.ServeHTTP)

	t.Run("successful db query metric", func(t *testing.T) {
		mPrometheusClient.MonitorDBQueryDuration(mDuration, SuccessfulQueryDurationTag, mLabels)
		req, err := http.NewRequest("GET", "/metrics", nil)
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		resp := rr.Result()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, data)
		body := string(data)

		sumMetric := `fikir_db_successful_queries_duration_sum{query_type="SELECT"} 1`
		countMetric := `fikir_db_successful_queries_duration_count{query_type="SELECT"} 1`

		assert.Contains(t, body, sumMetric)
		assert.Contains(t, body, countMetric)
	})

	t.Run("failure db query metric", func(t *testing.T) {
		mPrometheusClient.MonitorDBQueryDuration(mDuration, FailureQueryDurationTag, mLabels)
		req, err := http.NewRequest("GET", "/metrics", nil)
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		resp := rr.Result()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, data)
		body := string(data)

		sumMetric := `fikir_db_failure_queries_duration_sum{query_type="SELECT"} 1`
		countMetric := `fikir_db_failure_queries_duration_count{query_type="SELECT"} 1`

		assert.Contains(t, body, sumMetric)
		assert.Contains(t, body, countMetric)
	})
}

func Test_PrometheusClient_MonitorCounters(t *testing.T) {
	mPrometheusClient := &prometheusClient{}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(CounterVecMetrics[PaymentsSettledCounterTag])
	metricsRegistry.MustRegister(CounterMetrics[WebhookDuplicatesCounterTag])

	mPrometheusClient.httpHandler = promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})

	r := chi.NewRouter()
	r.Get("/metrics", mPrometheusClient.httpHandler.ServeHTTP)

	t.Run("payments settled counter metric", func(t *testing.T) {
		labels := PaymentLabels{
			Provider: "CHAPA",
		}

		mPrometheusClient.MonitorCounters(PaymentsSettledCounterTag, labels.ToMap())

		req, err := http.NewRequest("GET", "/metrics", nil)
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		resp := rr.Result()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, data)
		body := string(data)

		metric := `fikir_business_payments_settled_counter{provider="CHAPA"} 1`

		assert.Contains(t, body, metric)

		// redefining the counter to have no influence on other tests
		CounterVecMetrics[PaymentsSettledCounterTag].Reset()
	})

	t.Run("webhook duplicates counter metric", func(t *testing.T) {
		mPrometheusClient.MonitorCounters(WebhookDuplicatesCounterTag, nil)

		req, err := http.NewRequest("GET", "/metrics", nil)
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		resp := rr.Result()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, data)
		body := string(data)

		metric := `fikir_business_webhook_duplicates_counter 1`

		assert.Contains(t, body, metric)
	})

	t.Run("counter vec metric not mapped on prometheus metrics", func(t *testing.T) {
		buf := new(strings.Builder)
		log.DefaultLogger.SetOutput(buf)
		log.DefaultLogger.SetLevel(log.ErrorLevel)

		labelsMock := map[string]string{
			"mock": "mock_value",
		}

		mPrometheusClient.MonitorCounters(MetricTag("counter_vec_mock_tag"), labelsMock)

		require.Contains(t, buf.String(), `level=error msg="metric not registered in Prometheus CounterVecMetrics: counter_vec_mock_tag`)
	})

	t.Run("counter metric not mapped on prometheus metrics", func(t *testing.T) {
		buf := new(strings.Builder)
		log.DefaultLogger.SetOutput(buf)
		log.DefaultLogger.SetLevel(log.ErrorLevel)

		mPrometheusClient.MonitorCounters(MetricTag("counter_mock_tag"), nil)

		require.Contains(t, buf.String(), `level=error msg="metric not registered in Prometheus CounterMetrics: counter_mock_tag`)
	})
}

func Test_PrometheusClient_MonitorHistogram(t *testing.T) {
	mPrometheusClient := &prometheusClient{}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(HistogramVecMetrics[ChapaAPIRequestDurationTag])

	mPrometheusClient.httpHandler = promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})

	mLabels := ChapaLabels{
		Method:     "POST",
		Endpoint:   "transaction/initialize",
		Status:     "success",
		StatusCode: "200",
	}

	mPrometheusClient.MonitorHistogram(1.5, ChapaAPIRequestDurationTag, mLabels.ToMap())

	r := chi.NewRouter()
	r.Get("/metrics", mPrometheusClient.httpHandler.ServeHTTP)

	req, err := http.NewRequest("GET", "/metrics", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	resp := rr.Result()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, data)
	body := string(data)

	sumMetric := `fikir_chapa_chapa_api_request_duration_seconds_sum{endpoint="transaction/initialize",method="POST",status="success",status_code="200"} 1.5`
	countMetric := `fikir_chapa_chapa_api_request_duration_seconds_count{endpoint="transaction/initialize",method="POST",status="success",status_code="200"} 1`

	assert.Contains(t, body, sumMetric)
	assert.Contains(t, body, countMetric)
}

func Test_PrometheusClient_RegisterFunctionMetric(t *testing.T) {
	mPrometheusClient, err := NewPrometheusClient()
	require.NoError(t, err)

	t.Run("registers a gauge function metric", func(t *testing.T) {
		mPrometheusClient.RegisterFunctionMetric(FuncGaugeType, FuncMetricOptions{
			Namespace:  DefaultNamespace,
			Subservice: string(DBSubservice),
			Name:       string(DBInUseConnectionsTag),
			Help:       "Number of connections currently in use",
			Function:   func() float64 { return 42 },
		})

		req, reqErr := http.NewRequest("GET", "/metrics", nil)
		require.NoError(t, reqErr)
		rr := httptest.NewRecorder()
		mPrometheusClient.httpHandler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `fikir_db_in_use_connections 42`)
	})

	t.Run("registers a counter function metric", func(t *testing.T) {
		mPrometheusClient.RegisterFunctionMetric(FuncCounterType, FuncMetricOptions{
			Namespace:  DefaultNamespace,
			Subservice: string(DBSubservice),
			Name:       string(DBWaitCountTotalTag),
			Help:       "Total number of connection waits",
			Function:   func() float64 { return 7 },
		})

		req, reqErr := http.NewRequest("GET", "/metrics", nil)
		require.NoError(t, reqErr)
		rr := httptest.NewRecorder()
		mPrometheusClient.httpHandler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `fikir_db_wait_count_total 7`)
	})

	t.Run("logs instead of panicking when registering a duplicate", func(t *testing.T) {
		buf := new(strings.Builder)
		log.DefaultLogger.SetOutput(buf)
		log.DefaultLogger.SetLevel(log.ErrorLevel)

		mPrometheusClient.RegisterFunctionMetric(FuncGaugeType, FuncMetricOptions{
			Namespace:  DefaultNamespace,
			Subservice: string(DBSubservice),
			Name:       string(DBInUseConnectionsTag),
			Help:       "Number of connections currently in use",
			Function:   func() float64 { return 42 },
		})

		require.Contains(t, buf.String(), "registering function metric in_use_connections")
	})
}

func Test_NewPrometheusClient_registersAllListedMetrics(t *testing.T) {
	mPrometheusClient, err := NewPrometheusClient()
	require.NoError(t, err)

	allMetrics := PrometheusMetrics()
	for _, tag := range MetricTag("").ListAll() {
		_, ok := allMetrics[tag]
		assert.Truef(t, ok, "metric tag %s is not mapped to a collector", tag)
	}

	req, err := http.NewRequest("GET", "/metrics", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	mPrometheusClient.GetMetricHttpHandler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
