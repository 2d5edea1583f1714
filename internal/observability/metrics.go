package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture / VAD metrics
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homevoice_frames_captured_total",
		Help: "Total audio frames read from the capture source",
	})

	framesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homevoice_frames_forwarded_total",
		Help: "Total audio frames forwarded to the recognition channel",
	})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homevoice_frames_dropped_total",
		Help: "Total audio frames dropped before forwarding",
	}, []string{"reason"}) // reason: "silence", "cooldown", "transport"

	utterances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homevoice_utterances_total",
		Help: "Total speech segments detected (speech-start to speech-end)",
	})

	bargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homevoice_barge_ins_total",
		Help: "Total playback cancellations triggered by user speech",
	})

	// Transport metrics
	transcriptsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homevoice_transcripts_total",
		Help: "Total transcript messages received from the recognizer",
	}, []string{"kind"}) // kind: "partial", "final", "duplicate"

	transportReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homevoice_transport_reconnects_total",
		Help: "Total lazy reconnect attempts per streaming channel",
	}, []string{"channel", "status"}) // channel: "recognition", "synthesis"

	// Playback metrics
	playbackSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homevoice_playback_sessions_total",
		Help: "Total synthesis playback sessions started",
	})

	playbackChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homevoice_playback_chunks_total",
		Help: "Total synthesis audio chunks handled by the playback buffer",
	}, []string{"status"}) // status: "played", "stale", "error"

	// Dispatch metrics
	dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homevoice_dispatches_total",
		Help: "Total intent dispatches",
	}, []string{"intent", "status"}) // status: "ok", "failed", "unauthorized"

	dispatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "homevoice_dispatch_latency_seconds",
		Help:    "Latency of intent dispatch including downstream calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Synthesis bridge metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homevoice_synthesis_requests_total",
		Help: "Total speak requests handled by the synthesis bridge",
	}, []string{"status"})

	synthesisBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homevoice_synthesis_bytes_total",
		Help: "Total synthesized audio bytes relayed to clients",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "homevoice_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// RecordFrameCaptured counts one frame read from the capture source.
func RecordFrameCaptured() { framesCaptured.Inc() }

// RecordFrameForwarded counts one frame sent upstream.
func RecordFrameForwarded() { framesForwarded.Inc() }

// RecordFrameDropped counts one frame dropped before forwarding.
func RecordFrameDropped(reason string) { framesDropped.WithLabelValues(reason).Inc() }

// RecordUtterance counts one completed speech segment.
func RecordUtterance() { utterances.Inc() }

// RecordBargeIn counts one barge-in playback cancellation.
func RecordBargeIn() { bargeIns.Inc() }

// RecordTranscript counts one transcript message by kind.
func RecordTranscript(kind string) { transcriptsReceived.WithLabelValues(kind).Inc() }

// RecordReconnect counts one lazy reconnect attempt.
func RecordReconnect(channel, status string) {
	transportReconnects.WithLabelValues(channel, status).Inc()
}

// RecordPlaybackSession counts one playback session start.
func RecordPlaybackSession() { playbackSessions.Inc() }

// RecordPlaybackChunk counts one playback chunk by outcome.
func RecordPlaybackChunk(status string) { playbackChunks.WithLabelValues(status).Inc() }

// RecordDispatch counts one intent dispatch with its outcome.
func RecordDispatch(intent, status string) { dispatches.WithLabelValues(intent, status).Inc() }

// ObserveDispatchLatency records dispatch latency in seconds.
func ObserveDispatchLatency(seconds float64) { dispatchLatency.Observe(seconds) }

// RecordSynthesisRequest counts one speak request by outcome.
func RecordSynthesisRequest(status string) { synthesisRequests.WithLabelValues(status).Inc() }

// RecordSynthesisBytes counts relayed synthesized audio bytes.
func RecordSynthesisBytes(n int) { synthesisBytes.Add(float64(n)) }

// UpdateCircuitBreakerState updates the circuit breaker state gauge.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
