// Package metrics exposes Prometheus metrics for scoring runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maastricht-university/edmo-der/der"
)

var (
	// scoredFilesTotal counts scored reference/system pairs.
	// Labels:
	//   - status: "ok" or "failed"
	scoredFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "der_scored_files_total",
			Help: "Total number of reference/system pairs scored",
		},
		[]string{"status"},
	)

	// derPercent records the DER of each scored pair.
	derPercent = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "der_percent",
			Help:    "Diarization error rate per scored pair, in percent",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 30, 50, 75, 100},
		},
	)

	// classifiedSeconds accumulates interval time per classification.
	// Labels:
	//   - type: OK, MS, FA or SER
	classifiedSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "der_classified_seconds_total",
			Help: "Total timeline seconds per interval classification",
		},
		[]string{"type"},
	)

	scoredSpeechSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "der_scored_speech_seconds_total",
			Help: "Total reference speech time used as the DER denominator",
		},
	)
)

func init() {
	prometheus.MustRegister(scoredFilesTotal)
	prometheus.MustRegister(derPercent)
	prometheus.MustRegister(classifiedSeconds)
	prometheus.MustRegister(scoredSpeechSeconds)
}

// RecordResult records one successfully scored pair.
func RecordResult(res der.Result) {
	scoredFilesTotal.WithLabelValues("ok").Inc()
	derPercent.Observe(res.Metrics.DER)
	scoredSpeechSeconds.Add(res.Metrics.Scored)
	for _, iv := range res.Intervals {
		if d := iv.Duration(); d > 0 {
			classifiedSeconds.WithLabelValues(string(iv.Type)).Add(d)
		}
	}
}

// RecordFailure records a pair that could not be scored, e.g. an unreadable file.
func RecordFailure() {
	scoredFilesTotal.WithLabelValues("failed").Inc()
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
