// Package metrics exposes Prometheus counters for coaching conversations.
package metrics

import (
	"net/http"
	"time"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records coaching metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	turnsTotal    *prometheus.CounterVec
	goalsTotal    *prometheus.CounterVec
	categoryTotal *prometheus.CounterVec
	active        prometheus.Gauge
	turnDuration  *prometheus.HistogramVec
}

// NewRecorder creates a Recorder. Process and Go runtime collectors are
// registered alongside the coaching metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_turns_total",
				Help: "Processed conversation turns by step and outcome",
			},
			[]string{"step", "outcome"},
		),
		goalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_goals_total",
				Help: "Plans sent by goal",
			},
			[]string{"goal"},
		),
		categoryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_bmi_category_total",
				Help: "Computed BMI results by category",
			},
			[]string{"category"},
		),
		active: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fitcoach_active_conversations",
				Help: "Conversations currently held in memory",
			},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitcoach_turn_duration_seconds",
				Help:    "Time spent processing one turn, excluding delivery pacing",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"channel"},
		),
	}
}

// ObserveTurn implements coach.Observer.
func (r *Recorder) ObserveTurn(ev coach.TurnEvent) {
	r.turnsTotal.WithLabelValues(ev.From.String(), string(ev.Outcome)).Inc()
	if ev.Goal != coach.GoalUnset {
		r.goalsTotal.WithLabelValues(ev.Goal.String()).Inc()
	}
	if ev.Category != "" {
		r.categoryTotal.WithLabelValues(string(ev.Category)).Inc()
	}
}

// ObserveDuration records how long a turn took on channel.
func (r *Recorder) ObserveDuration(channel string, d time.Duration) {
	r.turnDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// ConversationOpened increments the active conversation gauge.
func (r *Recorder) ConversationOpened() { r.active.Inc() }

// ConversationClosed decrements the active conversation gauge.
func (r *Recorder) ConversationClosed() { r.active.Dec() }

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
