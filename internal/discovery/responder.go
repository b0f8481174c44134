package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koron/go-ssdp"

	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
)

// serverName is the SERVER header value in SSDP advertisements.
const serverName = "myq-bridge"

// Logger defines the logging interface used by the Responder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// searchRequest is the subset of an SSDP search broadcast the responder
// acts on. SERVER_IP, SERVER_PORT, and DEVICE_ID are extension headers the
// SmartThings driver adds to its M-SEARCH.
type searchRequest struct {
	serviceType string
	hubIP       string
	hubPort     string
	deviceID    string
}

// ackPayload is the body of the unicast acknowledgement POSTed back to the
// hub's /ping endpoint. Field names are fixed by the hub driver.
type ackPayload struct {
	MyQServerPort int    `json:"myqServerPort"`
	DeviceID      string `json:"deviceId"`
}

// Responder answers SSDP discovery broadcasts from the SmartThings hub.
//
// Discovery is passive: the bridge cannot know its externally reachable
// address (it typically runs inside a container), so instead of announcing
// an address it waits for the hub's broadcast, which carries the hub's own
// IP and port, and POSTs its listening port back to the hub.
//
// At most one acknowledgement is in flight at a time. The pending flag is
// claimed with an atomic test-and-set before any network call, so duplicate
// broadcasts from the same discovery round are dropped without log noise.
type Responder struct {
	cfg        config.DiscoveryConfig
	bridgePort int
	logger     Logger
	httpc      *http.Client

	pending atomic.Bool

	advertiser *ssdp.Advertiser
	monitor    *ssdp.Monitor
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewResponder creates a discovery responder. bridgePort is the port the
// HTTP API listens on, the one piece of information the hub needs.
func NewResponder(cfg config.DiscoveryConfig, bridgePort int) *Responder {
	return &Responder{
		cfg:        cfg,
		bridgePort: bridgePort,
		logger:     noopLogger{},
		httpc: &http.Client{
			Timeout: cfg.GetAckTimeout(),
		},
	}
}

// SetLogger sets the logger for the responder.
func (r *Responder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start begins advertising the bridge on the local network and listening
// for hub search broadcasts. It returns once the sockets are up; incoming
// broadcasts are handled on the monitor's goroutine.
func (r *Responder) Start(ctx context.Context) error {
	location := fmt.Sprintf("http://0.0.0.0:%d/details", r.bridgePort)

	advertiser, err := ssdp.Advertise(r.cfg.ServiceType, r.cfg.UDN, location, serverName, r.cfg.MaxAge)
	if err != nil {
		return fmt.Errorf("starting ssdp advertiser: %w", err)
	}
	r.advertiser = advertiser

	r.monitor = &ssdp.Monitor{
		Search: r.onSearch,
	}
	if err := r.monitor.Start(); err != nil {
		advertiser.Close()
		return fmt.Errorf("starting ssdp monitor: %w", err)
	}

	// Periodic alive notifications keep the advertisement fresh for hubs
	// that missed the initial announcement.
	var aliveCtx context.Context
	aliveCtx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.aliveLoop(aliveCtx)

	r.logger.Info("auto-discovery listening for hub requests",
		"service_type", r.cfg.ServiceType,
		"location", location,
	)
	return nil
}

// Close stops advertising and listening. A byebye notification is sent so
// well-behaved control points drop the entry immediately.
func (r *Responder) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	if r.monitor != nil {
		r.monitor.Close()
	}
	if r.advertiser != nil {
		if err := r.advertiser.Bye(); err != nil {
			r.logger.Warn("ssdp byebye failed", "error", err)
		}
		return r.advertiser.Close()
	}
	return nil
}

// aliveLoop re-announces the advertisement at half the max-age interval.
func (r *Responder) aliveLoop(ctx context.Context) {
	defer r.wg.Done()

	interval := time.Duration(r.cfg.MaxAge) * time.Second / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.advertiser.Alive(); err != nil {
				r.logger.Warn("ssdp alive notification failed", "error", err)
			}
		}
	}
}

// onSearch adapts an SSDP search message into a searchRequest.
func (r *Responder) onSearch(m *ssdp.SearchMessage) {
	header := m.Header()
	r.respond(searchRequest{
		serviceType: m.Type,
		hubIP:       header.Get("SERVER_IP"),
		hubPort:     header.Get("SERVER_PORT"),
		deviceID:    header.Get("DEVICE_ID"),
	})
}

// respond handles a single search broadcast.
//
// The pending flag must be claimed before the POST: broadcasts can arrive
// back-to-back (several listeners answer the same multicast search), and
// only the first may produce an acknowledgement. Dropping the rest is the
// expected case, not an error.
func (r *Responder) respond(req searchRequest) {
	if req.serviceType != r.cfg.ServiceType {
		return
	}
	if req.hubIP == "" || req.hubPort == "" {
		return
	}
	if !r.pending.CompareAndSwap(false, true) {
		return
	}
	defer r.pending.Store(false)

	hubAddress := fmt.Sprintf("http://%s:%s/ping", req.hubIP, req.hubPort)
	r.logger.Info("detected auto-discovery request from hub, replying with bridge address",
		"hub", hubAddress,
	)

	payload, err := json.Marshal(ackPayload{
		MyQServerPort: r.bridgePort,
		DeviceID:      req.deviceID,
	})
	if err != nil {
		r.logger.Error("encoding discovery acknowledgement", "error", err)
		return
	}

	resp, err := r.httpc.Post(hubAddress, "application/json", bytes.NewReader(payload))
	if err != nil {
		// Fire and forget: a hub that went away or a blocked port must
		// not affect the rest of the bridge.
		r.logger.Error("discovery acknowledgement failed", "hub", hubAddress, "error", err)
		return
	}
	defer resp.Body.Close()

	r.logger.Info("discovery acknowledgement sent to hub",
		"hub", hubAddress,
		"status", resp.StatusCode,
	)
}
