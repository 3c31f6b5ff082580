package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "tidal_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	pipelineRuns    *prometheus.CounterVec
	pipelineLatency *prometheus.HistogramVec
	rowsSkipped     *prometheus.CounterVec

	liveSamples *prometheus.CounterVec
	liveLevel   *prometheus.GaugeVec
	liveLossCum prometheus.Gauge

	waterAPIRequests *prometheus.CounterVec
	wsClients        prometheus.Gauge
)

// Init registers all collectors with the default registry. Observe functions
// are no-ops until Init has been called.
func Init() {
	registerOnce.Do(func() {
		pipelineRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_runs_total",
				Help: "Total analysis pipeline runs by result",
			},
			[]string{"result"},
		)
		pipelineLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_latency_seconds",
				Help:    "Analysis pipeline latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		rowsSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_skipped_total",
				Help: "Input rows skipped for unparseable fields by source",
			},
			[]string{"source"},
		)

		liveSamples = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "live_samples_total",
				Help: "Live device lines by result",
			},
			[]string{"result"},
		)
		liveLevel = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "live_value",
				Help: "Latest live value by channel",
			},
			[]string{"channel"},
		)
		liveLossCum = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "live_loss_cumulative",
				Help: "Cumulative debris loss index of the live feed",
			},
		)

		waterAPIRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "water_api_requests_total",
				Help: "Water level API requests by result",
			},
			[]string{"result"},
		)
		wsClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "ws_clients",
				Help: "Connected dashboard websocket clients",
			},
		)

		prometheus.MustRegister(
			pipelineRuns,
			pipelineLatency,
			rowsSkipped,
			liveSamples,
			liveLevel,
			liveLossCum,
			waterAPIRequests,
			wsClients,
		)
	})
}

// ObservePipeline records a pipeline run.
func ObservePipeline(err error, duration time.Duration) {
	result := resultOf(err)
	if pipelineRuns != nil {
		pipelineRuns.WithLabelValues(result).Inc()
	}
	if pipelineLatency != nil {
		pipelineLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddSkippedRows counts rows a loader dropped.
func AddSkippedRows(source string, n int) {
	if n <= 0 || rowsSkipped == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	rowsSkipped.WithLabelValues(source).Add(float64(n))
}

// ObserveLiveSample records one device line and, when it parsed, the values.
func ObserveLiveSample(err error, values map[string]float64, lossCum float64) {
	if liveSamples != nil {
		liveSamples.WithLabelValues(resultOf(err)).Inc()
	}
	if err != nil {
		return
	}
	if liveLevel != nil {
		for channel, v := range values {
			liveLevel.WithLabelValues(channel).Set(v)
		}
	}
	if liveLossCum != nil {
		liveLossCum.Set(lossCum)
	}
}

// IncWaterAPIRequest counts a water level API call.
func IncWaterAPIRequest(err error) {
	if waterAPIRequests != nil {
		waterAPIRequests.WithLabelValues(resultOf(err)).Inc()
	}
}

// SetWSClients reports connected websocket clients.
func SetWSClients(n int) {
	if wsClients != nil {
		wsClients.Set(float64(n))
	}
}

func resultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
