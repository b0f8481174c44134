package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartthings-community/myq-bridge/internal/device"
	"github.com/smartthings-community/myq-bridge/internal/session"
)

// refreshRequest is the body the hub posts to /devices.
type refreshRequest struct {
	Auth struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"auth"`
}

// refreshMeta carries bridge metadata alongside the device list. The field
// names are part of the hub contract.
type refreshMeta struct {
	Version         string `json:"version"`
	UpdateAvailable bool   `json:"updateAvailable"`
}

// refreshResponse is the success body for /devices.
type refreshResponse struct {
	Meta    refreshMeta     `json:"meta"`
	Devices []device.Device `json:"devices"`
}

// handleRefreshDevices authenticates with the supplied credentials, pulls the
// current device list from the upstream service, feeds it through the cache
// for transition detection, and returns it to the hub.
func (s *Server) handleRefreshDevices(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if !s.sessions.SetCredentials(req.Auth.Email, req.Auth.Password) {
		writeUnauthorized(w, "missing or invalid credentials")
		return
	}

	devices, err := s.sessions.EnsureSession(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingCredentials),
			errors.Is(err, session.ErrUnauthorized):
			writeUnauthorized(w, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	if len(devices) == 0 {
		writeInternalError(w, "No devices found")
		return
	}

	transitions := s.cache.Ingest(devices)
	s.publishEvents(devices, transitions)

	updateAvailable := false
	if s.updates != nil {
		updateAvailable = s.updates.UpdateAvailable()
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Meta: refreshMeta{
			Version:         s.version,
			UpdateAvailable: updateAvailable,
		},
		Devices: devices,
	})
}

// publishEvents fans detected state changes and the refreshed per-device
// snapshots out to the optional event publisher. The state snapshots are
// retained by the broker so late subscribers see current values. Publish
// failures are logged and dropped; the hub response must not depend on
// the broker.
func (s *Server) publishEvents(devices []device.Device, transitions []device.Transition) {
	if s.events == nil {
		return
	}
	for _, tr := range transitions {
		if err := s.events.PublishTransition(tr); err != nil {
			s.logger.Warn("failed to publish device transition",
				"serial_number", tr.SerialNumber,
				"error", err,
			)
		}
	}
	for _, d := range devices {
		if err := s.events.PublishDeviceState(d); err != nil {
			s.logger.Warn("failed to publish device state",
				"serial_number", d.SerialNumber,
				"error", err,
			)
		}
	}
}
