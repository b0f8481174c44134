package update

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
)

// Logger defines the logging interface used by the Poller.
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

// checkRequest is the payload sent to the version endpoint.
type checkRequest struct {
	App            string `json:"app"`
	CurrentVersion string `json:"currentVersion"`
}

// checkResponse is the payload the version endpoint answers with.
type checkResponse struct {
	Version string `json:"version"`
}

// Poller periodically asks a remote endpoint whether a newer bridge version
// exists and latches the answer into a sticky flag.
//
// The check is best-effort: every transport or parse failure is swallowed,
// because an unreachable version service must never affect the bridge's
// availability. The flag is never cleared within a process lifetime; the
// operator restarts into the new version anyway.
type Poller struct {
	cfg     config.UpdateConfig
	current string
	logger  Logger
	httpc   *http.Client

	updateAvailable atomic.Bool
}

// NewPoller creates a version poller. current is this build's version string.
func NewPoller(cfg config.UpdateConfig, current string) *Poller {
	return &Poller{
		cfg:     cfg,
		current: current,
		logger:  noopLogger{},
		httpc: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	p.logger = logger
}

// UpdateAvailable reports whether a newer version has been seen.
func (p *Poller) UpdateAvailable() bool {
	return p.updateAvailable.Load()
}

// Run checks immediately, then on the configured interval until the context
// is cancelled. It is intended to run on its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.checkOnce(ctx)

	ticker := time.NewTicker(p.cfg.GetInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.checkOnce(ctx)
		}
	}
}

// checkOnce performs a single version check.
func (p *Poller) checkOnce(ctx context.Context) {
	payload, err := json.Marshal(checkRequest{
		App:            p.cfg.App,
		CurrentVersion: p.current,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var cr checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return
	}

	if cr.Version == "" || cr.Version == p.current {
		return
	}

	// Log only on the first detection; the flag is sticky.
	if p.updateAvailable.CompareAndSwap(false, true) {
		p.logger.Info("newer server version is available",
			"current", p.current,
			"latest", cr.Version,
		)
	}
}
