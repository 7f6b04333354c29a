// Package server exposes the HTTP API: the balance view, the refresh
// trigger, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apachehub/deudacero/internal/auth"
	"github.com/apachehub/deudacero/internal/middleware"
	"github.com/apachehub/deudacero/internal/models"
	"github.com/apachehub/deudacero/internal/service"
)

// Balances is the slice of the service layer the handlers need.
type Balances interface {
	Breakdowns(ctx context.Context, memberID int64, filter models.FilterState) (*service.View, error)
	RequestRefresh(memberID int64)
}

// Server wires the HTTP routes.
type Server struct {
	balances Balances
	logger   *slog.Logger
	router   chi.Router
}

// New builds the router. gatherer feeds the /metrics endpoint; pass the same
// registry the collectors were registered on.
func New(balances Balances, jwtManager *auth.JWTManager, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{balances: balances, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtManager))
		r.Get("/v1/balance", s.handleBalance)
		r.Post("/v1/balance/refresh", s.handleRefresh)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBalance computes the caller's filtered balance view.
//
// Query parameters:
//
//	range: all | 7d | 30d | custom (default all)
//	group: group id, 0 or absent for all groups
//	start, end: YYYY-MM-DD bounds, only honored with range=custom
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.GetMemberID(r.Context())

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.balances.Breakdowns(r.Context(), memberID, filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, service.ErrNotReady) {
			writeError(w, http.StatusConflict, "no balance data yet, refresh failed")
			return
		}
		s.logger.Error("balance computation failed", "member_id", memberID, "error", err)
		writeError(w, http.StatusBadGateway, "balance temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// handleRefresh queues a background refresh and returns immediately. Repeat
// calls while a refresh runs collapse into one trailing run.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.GetMemberID(r.Context())
	s.balances.RequestRefresh(memberID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh queued"})
}

func parseFilter(r *http.Request) (models.FilterState, error) {
	filter := models.DefaultFilter()
	q := r.URL.Query()

	if v := q.Get("range"); v != "" {
		filter.DateRange = models.DateRange(v)
	}
	if v := q.Get("group"); v != "" {
		groupID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errors.New("group must be an integer id")
		}
		filter.GroupID = groupID
	}
	filter.StartDate = q.Get("start")
	filter.EndDate = q.Get("end")
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
