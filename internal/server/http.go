package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"BuildingDex/internal/observability"
	"BuildingDex/internal/query"
)

// Server exposes the read-only query API over HTTP/JSON. All responses come
// from committed views, so handlers never contend with block processing.
type Server struct {
	svc    *query.Service
	health *observability.HealthChecker
	router *mux.Router
	log    zerolog.Logger
	http   *http.Server
}

func NewServer(svc *query.Service, health *observability.HealthChecker) *Server {
	s := &Server{
		svc:    svc,
		health: health,
		router: mux.NewRouter(),
		log:    observability.NewLogger("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/dex").Subrouter()

	api.HandleFunc("/orderbook/{building}", s.instrument("orderbook", s.handleGetOrderBook)).Methods("GET")
	api.HandleFunc("/trades/{building}/{item}", s.instrument("trades", s.handleGetTradeHistory)).Methods("GET")
	api.HandleFunc("/buildings", s.instrument("buildings", s.handleGetBuildings)).Methods("GET")
	api.HandleFunc("/buildings/{building}", s.instrument("building", s.handleGetBuilding)).Methods("GET")

	s.router.HandleFunc("/accounts/{name}/balance",
		s.instrument("balance", s.handleGetBalance)).Methods("GET")

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc("/healthz", s.health.LivenessHandler).Methods("GET")
	s.router.HandleFunc("/readyz", s.health.ReadinessHandler).Methods("GET")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// instrument wraps a handler with request counting and latency metrics.
func (s *Server) instrument(endpoint string, h func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := h(w, r)
		observability.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
		observability.QuerySeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) int {
	building, ok := parseBuilding(w, r)
	if !ok {
		return http.StatusBadRequest
	}
	return respondJSON(w, s.svc.GetOrderBook(building))
}

func (s *Server) handleGetTradeHistory(w http.ResponseWriter, r *http.Request) int {
	building, ok := parseBuilding(w, r)
	if !ok {
		return http.StatusBadRequest
	}
	item := mux.Vars(r)["item"]
	if item == "" {
		respondError(w, http.StatusBadRequest, "missing item")
		return http.StatusBadRequest
	}
	return respondJSON(w, s.svc.GetTradeHistory(building, item))
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) int {
	name := mux.Vars(r)["name"]
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing account name")
		return http.StatusBadRequest
	}
	return respondJSON(w, s.svc.GetBalance(name))
}

func (s *Server) handleGetBuildings(w http.ResponseWriter, r *http.Request) int {
	return respondJSON(w, s.svc.GetBuildings())
}

func (s *Server) handleGetBuilding(w http.ResponseWriter, r *http.Request) int {
	building, ok := parseBuilding(w, r)
	if !ok {
		return http.StatusBadRequest
	}
	entry, found := s.svc.GetBuilding(building)
	if !found {
		respondError(w, http.StatusNotFound, "unknown building")
		return http.StatusNotFound
	}
	return respondJSON(w, entry)
}

func parseBuilding(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := mux.Vars(r)["building"]
	building, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid building id")
		return 0, false
	}
	return building, true
}

func respondJSON(w http.ResponseWriter, data interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
	return http.StatusOK
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
