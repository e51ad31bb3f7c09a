// Package metrics declares the bot's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label of Submissions.
const (
	OutcomeConfirmed      = "confirmed"
	OutcomeUnconfirmed    = "unconfirmed"
	OutcomeSimulated      = "simulated"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
)

// Turns counts inbound turns by kind (command, text, callback).
var Turns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "formbot",
	Name:      "turns_total",
	Help:      "Inbound chat turns by kind.",
}, []string{"kind"})

// ValidationFailures counts rejected inputs by conversation state.
var ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "formbot",
	Name:      "validation_failures_total",
	Help:      "Rejected inputs by conversation state.",
}, []string{"state"})

// SessionsActive tracks the number of in-progress sessions.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "formbot",
	Name:      "sessions_active",
	Help:      "Number of in-progress conversations.",
})

// Submissions counts form submissions by outcome.
var Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "formbot",
	Name:      "submissions_total",
	Help:      "Form submissions by outcome.",
}, []string{"outcome"})

// SubmissionDuration observes the latency of real (non-simulated) submissions.
var SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "formbot",
	Name:      "submission_duration_seconds",
	Help:      "Latency of form submission requests.",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
})
