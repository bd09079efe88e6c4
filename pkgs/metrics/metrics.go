// Package metrics exposes Prometheus instrumentation for the provenance
// client: contract call volume, submission outcomes, and verification
// verdicts.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// ContractCalls counts typed gateway operations by method and outcome.
	ContractCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenance_contract_calls_total",
		Help: "Contract calls issued through the ledger gateway",
	}, []string{"method", "outcome"})

	// Submissions counts submission pipeline outcomes.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenance_submissions_total",
		Help: "Record submissions by terminal outcome",
	}, []string{"outcome"})

	// SubmissionDuration tracks broadcast-to-confirmation latency.
	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "provenance_submission_duration_seconds",
		Help:    "Time from broadcast to confirmation",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// Verifications counts verifier verdicts.
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenance_verifications_total",
		Help: "Record verifications by verdict",
	}, []string{"verdict"})

	// HistoryRecords is the size of the last synchronized history set.
	HistoryRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "provenance_history_records",
		Help: "Records returned by the last history fetch",
	})

	// HistoryFetchDuration tracks full history fetch latency.
	HistoryFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "provenance_history_fetch_duration_seconds",
		Help:    "Time to retrieve and reconcile the full event history",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// ObserveCall records one gateway operation.
func ObserveCall(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ContractCalls.WithLabelValues(method, outcome).Inc()
}

// Serve exposes /metrics on the given port. Blocks; run in a goroutine.
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("Serving metrics on :%d/metrics", port)
	return server.ListenAndServe()
}
