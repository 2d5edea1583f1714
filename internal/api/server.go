// Package api exposes the controller's HTTP surface: the voice execute
// endpoint, the synthesis websocket bridge, health probes, and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/dispatch"
	"github.com/rb4home/homevoice/internal/intent"
	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/weather"
)

// Server holds the HTTP handlers for the controller.
type Server struct {
	classifier *intent.Classifier
	dispatcher *dispatch.Dispatcher
	bridge     *TTSBridge
	checks     map[string]observability.HealthCheckFunc
	metrics    bool
	log        zerolog.Logger
}

// NewServer creates the HTTP surface. checks feed the readiness probe.
func NewServer(
	classifier *intent.Classifier,
	dispatcher *dispatch.Dispatcher,
	bridge *TTSBridge,
	checks map[string]observability.HealthCheckFunc,
	metricsEnabled bool,
	log zerolog.Logger,
) *Server {
	return &Server{
		classifier: classifier,
		dispatcher: dispatcher,
		bridge:     bridge,
		checks:     checks,
		metrics:    metricsEnabled,
		log:        log.With().Str("component", "api").Logger(),
	}
}

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/voice/execute", s.handleExecute)
	mux.HandleFunc("/ws/tts", s.bridge.Handle)
	mux.HandleFunc("/healthz", observability.HealthCheckHandler("voiced"))
	mux.HandleFunc("/readyz", observability.ReadinessHandler("voiced", s.checks))
	if s.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

type executeRequest struct {
	Command string   `json:"command"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

type executeResponse struct {
	Message string `json:"message"`
}

// handleExecute classifies one spoken command and dispatches it.
// Recognized-but-failed actions still answer 200 with an explanatory
// message; 400 is reserved for a missing command and 401 for media
// intents without authorization.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, executeResponse{Message: "Použij metodu POST."})
		return
	}

	correlationID := r.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := s.log.With().Str("correlation_id", correlationID).Logger()

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, executeResponse{Message: "Chybí hlasový příkaz."})
		return
	}

	command := strings.TrimSpace(req.Command)
	if len([]rune(command)) < 2 {
		writeJSON(w, http.StatusOK, executeResponse{Message: "Příkaz je příliš krátký."})
		return
	}

	in := s.classifier.Classify(command)
	log.Info().Str("command", command).Str("intent", in.Kind.String()).Msg("command classified")

	token := mediaToken(r)
	if in.Kind.IsMedia() && token == "" {
		writeJSON(w, http.StatusUnauthorized, executeResponse{Message: "Spotify není přihlášeno."})
		return
	}

	var loc *weather.Query
	if req.Lat != nil && req.Lon != nil {
		loc = &weather.Query{Lat: *req.Lat, Lon: *req.Lon, HasCoord: true}
	}

	res := s.dispatcher.DispatchLocated(r.Context(), in, token, loc)
	writeJSON(w, http.StatusOK, executeResponse{Message: res.Message})
}

// mediaToken pulls the user's media authorization from the session
// cookie, falling back to a bearer header for non-browser clients.
func mediaToken(r *http.Request) string {
	if c, err := r.Cookie("spotify_access_token"); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Shutdown releases bridge resources on server stop.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.bridge.Shutdown(ctx)
}
