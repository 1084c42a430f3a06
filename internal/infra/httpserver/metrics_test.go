package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// statusRoutes registers the routes the remote's status controller serves.
type statusRoutes struct{}

func (statusRoutes) AddRoutes(router *http.ServeMux) {
	router.HandleFunc("GET /v1/stats", func(w http.ResponseWriter, r *http.Request) {
		ReplyJSONResponse(w, http.StatusOK, map[string]int{"queue_depth": 0})
	})
	router.HandleFunc("GET /v1/state", func(w http.ResponseWriter, r *http.Request) {
		ReplyWithError(w, http.StatusNotFound, "no device state cached")
	})
	router.HandleFunc("POST /v1/intents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
}

// requestCounts flattens the request counter into "route status" keys.
func requestCounts(reader *sdkmetric.ManualReader) map[string]int64 {
	var collected metricdata.ResourceMetrics
	gomega.Expect(reader.Collect(context.Background(), &collected)).To(gomega.Succeed())

	counts := map[string]int64{}
	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "lumen_remote.http.requests.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			gomega.Expect(ok).To(gomega.BeTrue())
			for _, point := range sum.DataPoints {
				route, _ := point.Attributes.Value(attribute.Key("http.route"))
				status, _ := point.Attributes.Value(attribute.Key("http.status_code"))
				counts[route.AsString()+" "+status.Emit()] += point.Value
			}
		}
	}
	return counts
}

var _ = ginkgo.Describe("request metrics", func() {
	var (
		reader  *sdkmetric.ManualReader
		handler http.Handler
	)

	ginkgo.BeforeEach(func() {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		router := http.NewServeMux()
		statusRoutes{}.AddRoutes(router)
		metrics := newRequestMetrics(provider.Meter("lumen-remote"))
		handler = metrics.middleware(router)(router)
	})

	serve := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec.Code
	}

	ginkgo.It("should label each status route by its pattern", func() {
		gomega.Expect(serve("GET", "/v1/stats", "")).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve("GET", "/v1/stats", "")).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve("GET", "/v1/state", "")).To(gomega.Equal(http.StatusNotFound))
		gomega.Expect(serve("POST", "/v1/intents", `{"kind":"set_preset","value":4}`)).To(gomega.Equal(http.StatusAccepted))

		gomega.Expect(requestCounts(reader)).To(gomega.Equal(map[string]int64{
			"GET /v1/stats 200":    2,
			"GET /v1/state 404":    1,
			"POST /v1/intents 202": 1,
		}))
	})

	ginkgo.It("should fold unknown paths and wrong methods into one label", func() {
		serve("GET", "/v1/intents/8f0c3d1e", "")
		serve("GET", "/v1/intents", "")
		serve("DELETE", "/v1/stats", "")

		counts := requestCounts(reader)
		gomega.Expect(counts).To(gomega.HaveKeyWithValue("unmatched 404", int64(1)))
		gomega.Expect(counts).To(gomega.HaveKeyWithValue("unmatched 405", int64(2)))
		gomega.Expect(counts).To(gomega.HaveLen(2))
	})

	ginkgo.It("should record a latency sample and settle the in-flight gauge", func() {
		serve("GET", "/v1/stats", "")

		var collected metricdata.ResourceMetrics
		gomega.Expect(reader.Collect(context.Background(), &collected)).To(gomega.Succeed())
		byName := map[string]metricdata.Aggregation{}
		for _, scope := range collected.ScopeMetrics {
			for _, m := range scope.Metrics {
				byName[m.Name] = m.Data
			}
		}

		histogram, ok := byName["lumen_remote.http.request.duration.seconds"].(metricdata.Histogram[float64])
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(histogram.DataPoints).To(gomega.HaveLen(1))
		gomega.Expect(histogram.DataPoints[0].Count).To(gomega.Equal(uint64(1)))

		active, ok := byName["lumen_remote.http.requests.active"].(metricdata.Sum[int64])
		gomega.Expect(ok).To(gomega.BeTrue())
		for _, point := range active.DataPoints {
			gomega.Expect(point.Value).To(gomega.BeZero())
		}
	})
})
