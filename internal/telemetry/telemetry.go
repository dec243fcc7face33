// Package telemetry provides an opt-in Prometheus endpoint for long benchmark
// runs. It is designed to stay off the hot path: counters are fed from the
// histogram merge cadence, never per operation, and when disabled every
// public function is a no-op.
package telemetry

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var enabled atomic.Bool

var (
	opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cbench_ops_total",
		Help: "Operations completed, by benchmark kind",
	}, []string{"bench"})

	bytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cbench_bytes_total",
		Help: "Payload bytes moved through the driver, by benchmark kind",
	}, []string{"bench"})

	workerErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cbench_worker_errors_total",
		Help: "Workers terminated by a driver error",
	})
)

func init() {
	prometheus.MustRegister(opsTotal, bytesTotal, workerErrorsTotal)
}

// Serve starts the /metrics endpoint on addr and enables the counters.
// An empty addr leaves telemetry disabled. Errors from the listener are
// reported through errc; the server runs for the rest of the process.
func Serve(addr string, errc chan<- error) {
	if addr == "" {
		return
	}
	enabled.Store(true)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			if errc != nil {
				errc <- err
			}
		}
	}()
}

// ObserveMerge accounts one merged histogram window.
func ObserveMerge(bench string, ops, volume uint64) {
	if !enabled.Load() {
		return
	}
	opsTotal.WithLabelValues(bench).Add(float64(ops))
	bytesTotal.WithLabelValues(bench).Add(float64(volume))
}

// ObserveWorkerError accounts a worker terminated by a driver failure.
func ObserveWorkerError() {
	if !enabled.Load() {
		return
	}
	workerErrorsTotal.Inc()
}
