// Package metrics provides Prometheus metrics for the subtitle pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "livesub"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionsActive  prometheus.Gauge

	SegmentsCaptured prometheus.Counter
	SegmentsSkipped  *prometheus.CounterVec
	CaptureLatency   prometheus.Histogram

	CuesEmitted          prometheus.Counter
	TranscribeLatency    prometheus.Histogram
	TranslationFallbacks prometheus.Counter

	RendererLaunches *prometheus.CounterVec
	PreviewsRendered *prometheus.CounterVec

	CuePublishErrors prometheus.Counter
	CuePublishLat    prometheus.Histogram
}

// Default is the process-wide metrics instance. promauto registers against
// the default registry, so construct exactly once.
var Default = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of subtitle sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently running subtitle sessions",
		}),
		SegmentsCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_captured_total",
			Help:      "Total number of audio segments captured",
		}),
		SegmentsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_skipped_total",
			Help:      "Total number of loop iterations that emitted no cue",
		}, []string{"reason"}),
		CaptureLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_latency_seconds",
			Help:      "Audio segment capture latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15},
		}),
		CuesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_emitted_total",
			Help:      "Total number of subtitle cues appended",
		}),
		TranscribeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcribe_latency_seconds",
			Help:      "Transcription latency per segment in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		TranslationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_fallbacks_total",
			Help:      "Total number of cues emitted with untranslated text after a translation failure",
		}),
		RendererLaunches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renderer_launches_total",
			Help:      "Hardsub renderer launch attempts by outcome",
		}, []string{"outcome"}),
		PreviewsRendered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "previews_rendered_total",
			Help:      "Preview render attempts by outcome",
		}, []string{"outcome"}),
		CuePublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cue_publish_errors_total",
			Help:      "Total number of failed cue event publishes",
		}),
		CuePublishLat: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cue_publish_latency_seconds",
			Help:      "Cue event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
}

// RecordSegmentSkipped records an iteration that emitted no cue.
func (m *Metrics) RecordSegmentSkipped(reason string) {
	m.SegmentsSkipped.WithLabelValues(reason).Inc()
}

// RecordRendererLaunch records a hardsub renderer launch attempt.
func (m *Metrics) RecordRendererLaunch(err error) {
	if err != nil {
		m.RendererLaunches.WithLabelValues("error").Inc()
		return
	}
	m.RendererLaunches.WithLabelValues("ok").Inc()
}

// RecordPreview records a preview render attempt.
func (m *Metrics) RecordPreview(err error) {
	if err != nil {
		m.PreviewsRendered.WithLabelValues("error").Inc()
		return
	}
	m.PreviewsRendered.WithLabelValues("ok").Inc()
}

// RecordCuePublish records a cue event publish attempt.
func (m *Metrics) RecordCuePublish(err error, latencySeconds float64) {
	m.CuePublishLat.Observe(latencySeconds)
	if err != nil {
		m.CuePublishErrors.Inc()
	}
}
