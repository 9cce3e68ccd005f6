package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		messagesProcessed,
		messagesFailed,
		claims,
		polls,
		llmLatencyMs,
	)
}

var (
	messagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_messages_processed_total",
			Help: "Messages classified and written back, by classification tier.",
		},
		[]string{"classified_by"},
	)

	messagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_messages_failed_total",
			Help: "Messages that failed during claim, classify or update.",
		},
	)

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_claims_total",
			Help: "Claim attempts by outcome (claimed|skipped|error).",
		},
		[]string{"outcome"},
	)

	polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_polls_total",
			Help: "Poll cycles by outcome (batch|empty|error).",
		},
		[]string{"outcome"},
	)

	llmLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_llm_latency_ms",
			Help:    "LLM generate latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"success"},
	)
)

func IncProcessed(classifiedBy string) {
	messagesProcessed.WithLabelValues(classifiedBy).Inc()
}

func IncFailed() {
	messagesFailed.Inc()
}

func IncClaim(outcome string) {
	claims.WithLabelValues(outcome).Inc()
}

func IncPoll(outcome string) {
	polls.WithLabelValues(outcome).Inc()
}

func ObserveLLMLatency(d time.Duration, success bool) {
	llmLatencyMs.WithLabelValues(strconv.FormatBool(success)).Observe(float64(d.Milliseconds()))
}
