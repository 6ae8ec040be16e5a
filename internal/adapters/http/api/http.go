// Package api serves the tagging commands and read models over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/okian/matchtag/internal/adapters/http/live"
	service "github.com/okian/matchtag/internal/app"
	"github.com/okian/matchtag/internal/domain/dedupe"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/session"
	"github.com/okian/matchtag/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Open(ctx context.Context, matchID string) (service.View, error)
	Close(ctx context.Context, matchID string) error
	View(ctx context.Context, matchID string) (service.View, error)

	StartTag(ctx context.Context, matchID string, t float64, team model.Team) (service.View, error)
	UpdateTag(ctx context.Context, matchID string, patch model.PartialEvent) (service.View, error)
	CancelTag(ctx context.Context, matchID string) (service.View, error)
	SaveTag(ctx context.Context, matchID string, opts session.SaveOptions) (session.SaveResult, error)

	DeleteEvent(ctx context.Context, matchID, eventID string) (service.View, error)
	DeleteAllEvents(ctx context.Context, matchID string) (int, service.View, error)
	ToggleSecondHalf(ctx context.Context, matchID string) (service.View, error)
	UpdateTeams(ctx context.Context, matchID string, teams map[model.Team]model.TeamInfo) (service.View, error)
	UpdatePossession(ctx context.Context, matchID string, team model.Team) (service.View, error)
	SetClock(ctx context.Context, matchID string, t float64) (service.View, error)
	SetMarker(ctx context.Context, matchID string, slot model.Slot, t float64) (service.View, error)

	Timeline(ctx context.Context, matchID string) ([]session.TimelineEntry, error)
	Markers(ctx context.Context, matchID string) (model.MatchTimeMarkers, bool, error)
	NextRequired(ctx context.Context, matchID string) (string, bool, error)
	Flush(ctx context.Context, matchID string) (int64, error)

	SeenAndRecord(ctx context.Context, key string) (dedupe.Response, bool)
	CompleteIdempotent(ctx context.Context, key string, resp dedupe.Response)
	Unrecord(ctx context.Context, key string)
}

// Live upgrades a request to a stream of a match's state views.
type Live interface {
	ServeWS(w http.ResponseWriter, r *http.Request, matchID string, snapshot live.Snapshot)
}

// Server wires HTTP routes for the tagging API.
type Server struct {
	deps    Dependencies
	stats   StatsProvider
	live    Live
	limiter *IPRateLimiter
	origins []string
	logger  logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLive enables the websocket route.
func WithLive(l Live) Option {
	return func(s *Server) {
		s.live = l
	}
}

// WithRateLimit limits each client IP to rps requests per second with the
// given burst. Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = NewIPRateLimiter(rps, burst)
		}
	}
}

// WithCORSOrigins sets the origins allowed by CORS.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		stats:         stats,
		origins:       []string{"*"},
		logger:        logger.Get().Named("api"),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(stats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	m := r.PathPrefix("/matches/{id}").Subrouter()
	route := func(path, method, endpoint string, h http.HandlerFunc) {
		m.HandleFunc(path, MetricsMiddleware(h, endpoint)).Methods(method)
	}
	route("/session", http.MethodPost, "open_session", s.handleOpen)
	route("/session", http.MethodDelete, "close_session", s.handleClose)
	route("", http.MethodGet, "view", s.handleView)
	route("/tags", http.MethodPost, "start_tag", s.handleStartTag)
	route("/tags/active", http.MethodPatch, "update_tag", s.handleUpdateTag)
	route("/tags/active", http.MethodDelete, "cancel_tag", s.handleCancelTag)
	route("/tags/active/save", http.MethodPost, "save_tag", s.idempotent(s.handleSaveTag))
	route("/events/{eventID}", http.MethodDelete, "delete_event", s.handleDeleteEvent)
	route("/events", http.MethodDelete, "delete_events", s.handleDeleteAllEvents)
	route("/half", http.MethodPost, "toggle_half", s.handleToggleHalf)
	route("/teams", http.MethodPut, "update_teams", s.handleUpdateTeams)
	route("/possession", http.MethodPut, "update_possession", s.handleUpdatePossession)
	route("/clock", http.MethodPut, "set_clock", s.handleSetClock)
	route("/markers/{slot}", http.MethodPut, "set_marker", s.handleSetMarker)
	route("/timeline", http.MethodGet, "timeline", s.handleTimeline)
	route("/markers", http.MethodGet, "markers", s.handleMarkers)
	route("/markers/next", http.MethodGet, "next_marker", s.handleNextMarker)
	route("/save", http.MethodPost, "flush", s.handleFlush)
	if s.live != nil {
		m.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)
	}

	var h http.Handler = r
	if s.limiter != nil {
		h = RateLimitMiddleware(s.limiter)(h)
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
	})
	return c.Handler(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type notAppliedResponse struct {
	Applied bool `json:"applied"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and API errors to status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotApplied):
		writeJSON(w, http.StatusConflict, notAppliedResponse{Applied: false})
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidMatchID):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, ErrInProgress):
		writeError(w, http.StatusConflict, "in_progress", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
	}
}
