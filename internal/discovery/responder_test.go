package discovery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
)

const testServiceType = "urn:SmartThingsCommunity:device:MyQController"

func testConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		Enabled:     true,
		ServiceType: testServiceType,
		UDN:         "uuid:smartthings-brbeaird-myq",
		MaxAge:      120,
		AckTimeout:  5,
	}
}

// fakeHub records /ping calls and optionally delays its response to hold
// the responder's pending window open.
type fakeHub struct {
	srv     *httptest.Server
	pings   atomic.Int64
	delay   time.Duration
	mu      sync.Mutex
	lastAck ackPayload
}

func newFakeHub(t *testing.T, delay time.Duration) *fakeHub {
	t.Helper()
	hub := &fakeHub{delay: delay}
	hub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if hub.delay > 0 {
			time.Sleep(hub.delay)
		}
		var ack ackPayload
		if err := json.NewDecoder(r.Body).Decode(&ack); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		hub.mu.Lock()
		hub.lastAck = ack
		hub.mu.Unlock()
		hub.pings.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hub.srv.Close)
	return hub
}

func (h *fakeHub) search(t *testing.T, deviceID string) searchRequest {
	t.Helper()
	u, err := url.Parse(h.srv.URL)
	if err != nil {
		t.Fatalf("parsing hub URL: %v", err)
	}
	return searchRequest{
		serviceType: testServiceType,
		hubIP:       u.Hostname(),
		hubPort:     u.Port(),
		deviceID:    deviceID,
	}
}

func TestResponder_RespondPostsAck(t *testing.T) {
	hub := newFakeHub(t, 0)
	r := NewResponder(testConfig(), 8090)

	r.respond(hub.search(t, "st-device-1"))

	if got := hub.pings.Load(); got != 1 {
		t.Fatalf("hub received %d pings, want 1", got)
	}
	hub.mu.Lock()
	ack := hub.lastAck
	hub.mu.Unlock()
	if ack.MyQServerPort != 8090 {
		t.Errorf("ack.myqServerPort = %d, want 8090", ack.MyQServerPort)
	}
	if ack.DeviceID != "st-device-1" {
		t.Errorf("ack.deviceId = %q, want st-device-1", ack.DeviceID)
	}
}

func TestResponder_DuplicateBroadcastsProduceOneAck(t *testing.T) {
	// The hub answers slowly so the second broadcast arrives while the
	// first acknowledgement is still in flight.
	hub := newFakeHub(t, 200*time.Millisecond)
	r := NewResponder(testConfig(), 8090)
	req := hub.search(t, "st-device-1")

	var wg sync.WaitGroup
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.respond(req)
		}()
	}
	wg.Wait()

	if got := hub.pings.Load(); got != 1 {
		t.Errorf("hub received %d pings, want exactly 1", got)
	}
}

func TestResponder_SequentialBroadcastsEachAck(t *testing.T) {
	hub := newFakeHub(t, 0)
	r := NewResponder(testConfig(), 8090)
	req := hub.search(t, "st-device-1")

	r.respond(req)
	r.respond(req)

	if got := hub.pings.Load(); got != 2 {
		t.Errorf("hub received %d pings, want 2 (pending must clear after each attempt)", got)
	}
}

func TestResponder_IgnoresForeignServiceType(t *testing.T) {
	hub := newFakeHub(t, 0)
	r := NewResponder(testConfig(), 8090)

	req := hub.search(t, "st-device-1")
	req.serviceType = "urn:schemas-upnp-org:device:MediaServer:1"
	r.respond(req)

	if got := hub.pings.Load(); got != 0 {
		t.Errorf("hub received %d pings, want 0 for foreign service type", got)
	}
}

func TestResponder_IgnoresBroadcastWithoutHubAddress(t *testing.T) {
	hub := newFakeHub(t, 0)
	r := NewResponder(testConfig(), 8090)

	noIP := hub.search(t, "st-device-1")
	noIP.hubIP = ""
	r.respond(noIP)

	noPort := hub.search(t, "st-device-1")
	noPort.hubPort = ""
	r.respond(noPort)

	if got := hub.pings.Load(); got != 0 {
		t.Errorf("hub received %d pings, want 0 without requester address", got)
	}
}

func TestResponder_PendingClearsAfterTransportError(t *testing.T) {
	hub := newFakeHub(t, 0)
	r := NewResponder(testConfig(), 8090)

	// First attempt targets a dead port; the error must be absorbed and
	// the pending flag released.
	dead := searchRequest{
		serviceType: testServiceType,
		hubIP:       "127.0.0.1",
		hubPort:     "1",
		deviceID:    "st-device-1",
	}
	r.respond(dead)

	if r.pending.Load() {
		t.Fatal("pending flag still set after failed acknowledgement")
	}

	r.respond(hub.search(t, "st-device-1"))
	if got := hub.pings.Load(); got != 1 {
		t.Errorf("hub received %d pings, want 1 after recovery", got)
	}
}
