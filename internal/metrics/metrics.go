// Package metrics provides Prometheus metrics for Castle
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcomes
const (
	OutcomeDone  = "done"
	OutcomeError = "error"
)

// Metrics holds all Prometheus metrics for Castle
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Chat relay metrics
	ChatStreamsTotal   *prometheus.CounterVec
	ChatStreamDuration *prometheus.HistogramVec
	ChatStreamsActive  prometheus.Gauge
	TokensRelayedTotal *prometheus.CounterVec

	// Chain metrics
	ChainRunsTotal *prometheus.CounterVec

	// RAG metrics
	RAGEnrichmentsTotal *prometheus.CounterVec
	ChunksIngestedTotal *prometheus.CounterVec
}

// New creates all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castle_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "castle_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.ChatStreamsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castle_chat_streams_total",
			Help: "Total number of chat streams by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	m.ChatStreamDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "castle_chat_stream_duration_seconds",
			Help:    "Duration of chat streams in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	m.ChatStreamsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "castle_chat_streams_active",
			Help: "Number of chat streams currently open",
		},
	)

	m.TokensRelayedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castle_tokens_relayed_total",
			Help: "Total number of token fragments relayed to clients",
		},
		[]string{"provider"},
	)

	m.ChainRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castle_chain_runs_total",
			Help: "Total number of chain executions",
		},
		[]string{"chain", "status"},
	)

	m.RAGEnrichmentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castle_rag_enrichments_total",
			Help: "Total number of RAG enrichments by result",
		},
		[]string{"result"},
	)

	m.ChunksIngestedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castle_chunks_ingested_total",
			Help: "Total number of chunks stored in the vector index",
		},
		[]string{"source_type"},
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordChatStream records a finished chat stream
func (m *Metrics) RecordChatStream(provider, outcome string, duration time.Duration) {
	m.ChatStreamsTotal.WithLabelValues(provider, outcome).Inc()
	m.ChatStreamDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordChainRun records a chain execution
func (m *Metrics) RecordChainRun(chain string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ChainRunsTotal.WithLabelValues(chain, status).Inc()
}

// Handler returns the HTTP handler exposing this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
