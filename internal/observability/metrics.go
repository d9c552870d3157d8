package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generation metrics
	generationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answer_audio_generation_runs_total",
		Help: "Total number of segment generation runs",
	}, []string{"backend", "status"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "answer_audio_generation_duration_seconds",
		Help:    "Wall time of a full generation run",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	generationProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "answer_audio_generation_progress_ratio",
		Help: "Completed fraction of the generation run in flight",
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answer_audio_synthesis_requests_total",
		Help: "Total number of per-segment synthesis requests",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "answer_audio_synthesis_latency_seconds",
		Help:    "Per-segment synthesis latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	containerBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "answer_audio_container_bytes_total",
		Help: "Total bytes of WAV containers produced",
	})

	// Recognition metrics
	recognitionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answer_audio_recognition_requests_total",
		Help: "Total number of answer sheet recognition requests",
	}, []string{"status"})

	// Playback metrics
	playbackSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "answer_audio_playback_sessions_total",
		Help: "Total number of playback sessions started",
	})

	playbackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answer_audio_playback_transitions_total",
		Help: "Playback transitions by kind",
	}, []string{"kind"}) // kind: play, pause, autoplay, end, close, rejected

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "answer_audio_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordGeneration records the outcome of a generation run
func RecordGeneration(backend string, success bool, elapsed time.Duration) {
	generationRuns.WithLabelValues(backend, statusLabel(success)).Inc()
	generationDuration.Observe(elapsed.Seconds())
}

// SetGenerationProgress publishes the completed fraction of the current run
func SetGenerationProgress(done, total int) {
	if total <= 0 {
		generationProgress.Set(0)
		return
	}
	generationProgress.Set(float64(done) / float64(total))
}

// RecordSynthesis records one per-segment synthesis request
func RecordSynthesis(success bool, elapsed time.Duration) {
	synthesisRequests.WithLabelValues(statusLabel(success)).Inc()
	synthesisLatency.Observe(elapsed.Seconds())
}

// RecordContainerBytes records the size of an encoded container
func RecordContainerBytes(n int) {
	containerBytes.Add(float64(n))
}

// RecordRecognition records one recognition request
func RecordRecognition(success bool) {
	recognitionRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordPlaybackSession records the start of a playback session
func RecordPlaybackSession() {
	playbackSessions.Inc()
}

// RecordPlaybackTransition records a playback state transition
func RecordPlaybackTransition(kind string) {
	playbackTransitions.WithLabelValues(kind).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
