package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// controlRequest is the body the hub posts to /{deviceID}/control.
type controlRequest struct {
	Command string `json:"command"`
}

// noTokenMessage matches what the SmartThings Edge driver expects to see when
// control arrives before any successful login.
const noTokenMessage = "No myQ login token. Please try again after successful device refresh."

// handleControl forwards a door or lamp command to the upstream service.
//
// The device must be known to the cache from a prior /devices refresh; the
// upstream call is never attempted for an unknown serial.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	if !s.sessions.HasSession() {
		writeInternalError(w, noTokenMessage)
		return
	}

	dev, ok := s.cache.Get(deviceID)
	if !ok {
		writeInternalError(w, fmt.Sprintf("device %s is not known; refresh devices first", deviceID))
		return
	}

	if err := s.sessions.Execute(r.Context(), dev, req.Command); err != nil {
		s.logger.Warn("device command failed",
			"serial_number", deviceID,
			"command", req.Command,
			"error", err,
		)
		writeInternalError(w, err.Error())
		return
	}

	s.logger.Info("device command sent",
		"serial_number", deviceID,
		"command", req.Command,
	)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
