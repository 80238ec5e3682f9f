package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vainnor/pomobot/session"
	"github.com/vainnor/pomobot/tracker"
	"github.com/vainnor/pomobot/types"
)

// Service is the operator surface served over HTTP.
type Service interface {
	Bind(channel types.ChannelID) (bool, error)
	Unbind(ctx context.Context) error
	Start(workMinutes, breakMinutes int) (*session.Session, error)
	Stop() error
	Status() tracker.Status
	TimeSpent(ctx context.Context, participant types.ParticipantID) (tracker.TimeSpent, error)
	Leaderboard(ctx context.Context) ([]types.PresenceTotal, error)
}

// Collector exposes accrual statistics.
type Collector interface {
	GetStats() types.AccrualStats
}

// Options configures the router.
type Options struct {
	// MasterKey authorises the mutating routes. Empty disables them.
	MasterKey string
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter creates and configures a new router with all API endpoints
func NewRouter(svc Service, collector Collector, opts Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, collector: collector, logger: logger}

	r := mux.NewRouter()
	r.Use(RequestLogger(logger))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Read-only endpoints
	api.HandleFunc("/status", h.getStatus).Methods("GET")
	api.HandleFunc("/participants/{id}/time", h.getTimeSpent).Methods("GET")
	api.HandleFunc("/leaderboard", h.getLeaderboard).Methods("GET")
	api.HandleFunc("/collector/stats", h.getCollectorStats).Methods("GET")

	// Operator endpoints
	op := RequireOperator(opts.MasterKey)
	api.Handle("/binding", op(http.HandlerFunc(h.putBinding))).Methods("PUT")
	api.Handle("/binding", op(http.HandlerFunc(h.deleteBinding))).Methods("DELETE")
	api.Handle("/session", op(http.HandlerFunc(h.postSession))).Methods("POST")
	api.Handle("/session", op(http.HandlerFunc(h.deleteSession))).Methods("DELETE")

	return r
}
