// Package server exposes the location and crop lookups over HTTP in the
// shapes the form clients consume.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Locations is the state > district > taluk lookup.
type Locations interface {
	States(ctx context.Context) ([]string, error)
	Districts(ctx context.Context, state string) ([]string, error)
	Taluks(ctx context.Context, state, district string) ([]string, error)
}

// Crops is the season and crop lookup.
type Crops interface {
	Seasons(ctx context.Context) ([]string, error)
	Crops(ctx context.Context, state, season string) ([]string, error)
}

type Server struct {
	locations Locations
	crops     Crops
	log       *zap.Logger
	router    chi.Router
}

func New(locations Locations, crops Crops, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{locations: locations, crops: crops, log: log}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/get-states", s.handleStates)
	r.Get("/api/states", s.handleStatesArray)
	r.Get("/get-seasons", s.handleSeasons)
	r.Get("/get-districts/{state}", s.handleDistricts)
	r.Get("/get_districts", s.handleDistrictsQuery)
	r.Get("/get-taluks/{state}/{district}", s.handleTaluks)
	r.Get("/get_taluks", s.handleTaluksQuery)
	r.Get("/get-crops/{state}/{season}", s.handleCrops)
	r.Get("/get_crops", s.handleCropsQuery)
	s.router = r
}

// Handler returns the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("lookup server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	list, err := s.locations.States(r.Context())
	s.envelope(w, r, "states", list, err)
}

func (s *Server) handleStatesArray(w http.ResponseWriter, r *http.Request) {
	list, err := s.locations.States(r.Context())
	s.array(w, r, list, err)
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	list, err := s.crops.Seasons(r.Context())
	s.envelope(w, r, "seasons", list, err)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	list, err := s.locations.Districts(r.Context(), param(r, "state"))
	s.envelope(w, r, "districts", list, err)
}

func (s *Server) handleDistrictsQuery(w http.ResponseWriter, r *http.Request) {
	list, err := s.locations.Districts(r.Context(), r.URL.Query().Get("state"))
	s.array(w, r, list, err)
}

func (s *Server) handleTaluks(w http.ResponseWriter, r *http.Request) {
	list, err := s.locations.Taluks(r.Context(), param(r, "state"), param(r, "district"))
	s.envelope(w, r, "taluks", list, err)
}

func (s *Server) handleTaluksQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.locations.Taluks(r.Context(), q.Get("state"), q.Get("district"))
	s.array(w, r, list, err)
}

func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	list, err := s.crops.Crops(r.Context(), param(r, "state"), param(r, "season"))
	s.envelope(w, r, "crops", list, err)
}

func (s *Server) handleCropsQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, season := strings.TrimSpace(q.Get("state")), strings.TrimSpace(q.Get("season"))
	if state == "" || season == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "State and season are required"})
		return
	}
	list, err := s.crops.Crops(r.Context(), state, season)
	s.array(w, r, list, err)
}

// envelope answers {"success": true, "<field>": [...]}.
func (s *Server) envelope(w http.ResponseWriter, r *http.Request, field string, list []string, err error) {
	if err != nil {
		s.log.Error("lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to load " + field})
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, field: list})
}

// array answers a bare JSON list.
func (s *Server) array(w http.ResponseWriter, r *http.Request, list []string, err error) {
	if err != nil {
		s.log.Error("lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, list)
}

// param returns the unescaped path parameter. chi routes on RawPath when the
// path carries escapes such as %2F, and leaves those in the captured value.
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests writes one access log line per request and echoes the request
// id set by middleware.RequestID.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set(middleware.RequestIDHeader, reqID)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("request_id", reqID),
				zap.Duration("elapsed", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}
