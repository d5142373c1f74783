package handlers

import (
	"bytes"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

var (
	funnelRequestsTotal *prometheus.CounterVec
	funnelDuration      prometheus.Histogram
	resessionizeTotal   prometheus.Counter
	stageRowsLoaded     prometheus.Gauge
)

func InitPrometheusMetrics() {
	funnelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopfunnel",
			Name:      "funnel_requests_total",
			Help:      "Funnel metric computations by outcome.",
		},
		[]string{"outcome"},
	)
	funnelDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shopfunnel",
			Name:      "funnel_computation_seconds",
			Help:      "Histogram of successful funnel computations end to end.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	resessionizeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopfunnel",
			Name:      "resessionize_total",
			Help:      "Completed re-sessionization runs.",
		},
	)
	stageRowsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shopfunnel",
			Name:      "stage_rows_loaded",
			Help:      "Rows bulk-copied from the stage at startup.",
		},
	)
	prometheus.MustRegister(funnelRequestsTotal, funnelDuration, resessionizeTotal, stageRowsLoaded)
}

// ObserveStageLoad records how many rows the startup stage copy brought in.
func ObserveStageLoad(rows int) {
	stageRowsLoaded.Set(float64(rows))
}

// PrometheusMetrics exposes the default registry in text exposition format.
// With ?app=1 only the service's own families are returned, hiding the Go
// runtime and process collectors.
func PrometheusMetrics() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		appOnly := len(ctx.QueryArgs().Peek("app")) > 0
		filtered := make([]*dto.MetricFamily, 0, len(metricFamilies))
		for _, mf := range metricFamilies {
			if appOnly && !strings.HasPrefix(mf.GetName(), "shopfunnel_") {
				continue
			}
			filtered = append(filtered, mf)
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range filtered {
			if err := encoder.Encode(mf); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
