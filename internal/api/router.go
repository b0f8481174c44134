package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// The route shapes match what the SmartThings Edge driver sends; the control
// route in particular puts the device serial first, so it is registered last
// to keep the fixed paths from being swallowed by the wildcard.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Post("/devices", s.handleRefreshDevices)
	r.Get("/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Get("/details", s.handleDetails)

	r.Post("/{deviceID}/control", s.handleControl)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleDetails serves the SSDP LOCATION target with basic bridge metadata.
func (s *Server) handleDetails(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "myq-bridge",
		"version": s.version,
		"port":    s.cfg.Port,
	})
}
