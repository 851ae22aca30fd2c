package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes for the API server
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/chains/{chain_id}/orders", s.handleOrdersByChain).Methods(http.MethodGet)
	v1.HandleFunc("/chains/{chain_id}/checkpoint", s.handleCheckpoint).Methods(http.MethodGet)
	v1.HandleFunc("/chains/{chain_id}/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{order_id}", s.handleOrder).Methods(http.MethodGet)

	return r
}
