package update

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
)

func newVersionServer(t *testing.T, version string, status int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.App == "" || req.CurrentVersion == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(checkResponse{Version: version})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func pollerFor(url, current string) *Poller {
	return NewPoller(config.UpdateConfig{
		Enabled:  true,
		URL:      url,
		App:      "myqEdge",
		Interval: 3600,
		Timeout:  2,
	}, current)
}

func TestPoller_NewerVersionSetsFlag(t *testing.T) {
	srv, _ := newVersionServer(t, "2.0.0", http.StatusOK)
	p := pollerFor(srv.URL, "1.9.0")

	p.checkOnce(context.Background())

	if !p.UpdateAvailable() {
		t.Error("UpdateAvailable() = false, want true for newer remote version")
	}
}

func TestPoller_SameVersionLeavesFlagClear(t *testing.T) {
	srv, _ := newVersionServer(t, "1.9.0", http.StatusOK)
	p := pollerFor(srv.URL, "1.9.0")

	p.checkOnce(context.Background())

	if p.UpdateAvailable() {
		t.Error("UpdateAvailable() = true, want false when versions match")
	}
}

func TestPoller_EmptyVersionLeavesFlagClear(t *testing.T) {
	srv, _ := newVersionServer(t, "", http.StatusOK)
	p := pollerFor(srv.URL, "1.9.0")

	p.checkOnce(context.Background())

	if p.UpdateAvailable() {
		t.Error("UpdateAvailable() = true, want false for empty remote version")
	}
}

func TestPoller_FlagIsSticky(t *testing.T) {
	srv, calls := newVersionServer(t, "2.0.0", http.StatusOK)
	p := pollerFor(srv.URL, "1.9.0")

	p.checkOnce(context.Background())
	p.checkOnce(context.Background())

	if !p.UpdateAvailable() {
		t.Error("UpdateAvailable() = false, want sticky true")
	}
	if calls.Load() != 2 {
		t.Errorf("endpoint calls = %d, want 2", calls.Load())
	}
}

func TestPoller_TransportErrorSwallowed(t *testing.T) {
	p := pollerFor("http://127.0.0.1:1", "1.9.0")

	// Must not panic or set the flag.
	p.checkOnce(context.Background())

	if p.UpdateAvailable() {
		t.Error("UpdateAvailable() = true after transport error, want false")
	}
}

func TestPoller_Non200Swallowed(t *testing.T) {
	srv, _ := newVersionServer(t, "2.0.0", http.StatusServiceUnavailable)
	p := pollerFor(srv.URL, "1.9.0")

	p.checkOnce(context.Background())

	if p.UpdateAvailable() {
		t.Error("UpdateAvailable() = true after 503, want false")
	}
}

func TestPoller_MalformedResponseSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)
	p := pollerFor(srv.URL, "1.9.0")

	p.checkOnce(context.Background())

	if p.UpdateAvailable() {
		t.Error("UpdateAvailable() = true after malformed response, want false")
	}
}
