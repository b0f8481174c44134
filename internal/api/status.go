package api

import "net/http"

// handleStatus is a plain-text diagnostic endpoint for checking the bridge
// from a browser. The two string bodies are kept verbatim for operators used
// to the original server.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if !s.sessions.HasSession() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write to response
		w.Write([]byte("Awaiting login"))
		return
	}

	devices := s.sessions.Devices()
	if len(devices) == 0 {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write to response
		w.Write([]byte("No devices detected"))
		return
	}

	writeJSON(w, http.StatusOK, devices)
}
