package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"railstatus-simulator/internal/rail"
	"railstatus-simulator/internal/sim"
)

// Server exposes the simulation feed and operator controls over HTTP.
type Server struct {
	mgr *sim.Manager
	tt  *rail.Timetable
}

func NewServer(mgr *sim.Manager, tt *rail.Timetable) *Server {
	return &Server{mgr: mgr, tt: tt}
}

// Router wires the endpoints.
func (s *Server) Router() http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/v1/trains", s.listTrainsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/trains/:id", s.trainHandler)
	router.HandlerFunc(http.MethodPut, "/v1/trains/:id/status", s.overrideHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/trains/:id/status", s.clearOverrideHandler)
	router.HandlerFunc(http.MethodPost, "/v1/simulation/tick", s.tickHandler)
	router.HandlerFunc(http.MethodPost, "/v1/simulation/reset", s.resetHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stations/:id", s.stationHandler)
	return s.logRequests(router)
}

// Serve starts the API server on addr and returns it for shutdown.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("api listening")
	return srv
}

type feedResponse struct {
	Now    string                `json:"now"`
	Tick   int64                 `json:"tick"`
	Trains []rail.StatusSnapshot `json:"trains"`
}

func (s *Server) listTrainsHandler(w http.ResponseWriter, r *http.Request) {
	resp := feedResponse{
		Now:    s.mgr.Now().String(),
		Tick:   s.mgr.Ticks(),
		Trains: s.mgr.Snapshots(),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) trainHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	snap, err := s.mgr.Snapshot(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

type overrideRequest struct {
	Status      string `json:"status"`
	Delay       int    `json:"delay"`
	NextStation string `json:"nextStation"`
}

func (s *Server) overrideHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	err := s.mgr.ApplyOverride(id, rail.Status(req.Status), req.Delay, req.NextStation)
	switch {
	case errors.Is(err, rail.ErrTrainNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, rail.ErrInvalidStatus):
		s.writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
	default:
		snap, _ := s.mgr.Snapshot(id)
		s.writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) clearOverrideHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	if err := s.mgr.ClearOverride(id); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	snap, _ := s.mgr.Snapshot(id)
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) tickHandler(w http.ResponseWriter, r *http.Request) {
	s.mgr.TickNow()
	s.writeJSON(w, http.StatusOK, map[string]any{"tick": s.mgr.Ticks(), "now": s.mgr.Now().String()})
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	s.mgr.ResetClock()
	s.writeJSON(w, http.StatusOK, map[string]any{"tick": s.mgr.Ticks(), "now": s.mgr.Now().String()})
}

func (s *Server) stationHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	s.writeJSON(w, http.StatusOK, rail.Station{ID: id, Name: s.tt.StationName(id)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
