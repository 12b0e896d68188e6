package http

import (
	"net/http"

	"challan-backend/internal/handlers"
	"challan-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	challanHandler *handlers.ChallanHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Route-level middleware runs after matching, so metrics see the path template
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.APILogging)

	// Health endpoints (public)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Prometheus
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected API routes - Challans
	challanAPI := r.PathPrefix("/api/challans").Subrouter()
	challanAPI.Use(authMiddleware.Authenticate)
	challanAPI.HandleFunc("", challanHandler.Generate).Methods("POST")
	challanAPI.HandleFunc("/preview", challanHandler.Preview).Methods("POST")
	challanAPI.HandleFunc("/history", challanHandler.History).Methods("GET")

	// Browsers cannot set headers on websocket upgrades, so the token rides in the query
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authMiddleware.AuthenticateQuery)
	ws.HandleFunc("/notifications", challanHandler.Notifications).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
