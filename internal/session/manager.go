package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/smartthings-community/myq-bridge/internal/device"
	"github.com/smartthings-community/myq-bridge/internal/myq"
)

// Logger defines the logging interface used by the Manager.
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

// Manager owns the credentials and the single upstream session.
//
// Exactly one credential pair is supported at a time: the hub passes
// credentials on every /devices call, and a changed pair invalidates the
// session and forces a fresh login before any refresh is attempted again.
// A fresh upstream client is created for each login, so a token obtained
// under old credentials is never reused.
//
// Concurrency: the mutex protects the Manager's fields but is NOT held
// across upstream calls. Two callers that both observe a stale session can
// therefore both issue a login; last writer wins and both end up with a
// valid session. With a single hub polling this server the window is
// unreachable in practice, and serialising upstream calls would block
// control requests behind slow cloud refreshes. See DESIGN.md.
type Manager struct {
	newAPI func() myq.API
	logger Logger

	mu         sync.Mutex
	email      string
	password   string
	needsLogin bool
	api        myq.API
	snapshot   *myq.Snapshot
}

// NewManager creates a session manager. newAPI is invoked to build a fresh
// upstream client for every login.
func NewManager(newAPI func() myq.API) *Manager {
	return &Manager{
		newAPI:     newAPI,
		needsLogin: true,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetCredentials stores the credential pair the hub supplied.
//
// Returns false when either value is empty. A pair that differs from the
// stored one marks the session for re-login; supplying the same pair again
// is idempotent and does not force a login.
func (m *Manager) SetCredentials(email, password string) bool {
	if email == "" || password == "" {
		m.logger.Warn("missing username or password")
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if email != m.email || password != m.password {
		m.logger.Info("got new username/password from hub")
		m.email = email
		m.password = password
		m.needsLogin = true
	}

	return true
}

// EnsureSession establishes or refreshes the upstream session and returns
// the freshly fetched device list.
//
// A login is performed when credentials changed (or no session ever
// succeeded); otherwise the existing session is refreshed. Missing token
// after the call means ErrUnauthorized; a non-200 upstream status means
// ErrRefreshFailed. Neither is retried here; the hub re-polls on its own
// schedule.
func (m *Manager) EnsureSession(ctx context.Context) ([]device.Device, error) {
	m.mu.Lock()
	email, password := m.email, m.password
	needsLogin := m.needsLogin
	api := m.api
	m.mu.Unlock()

	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var (
		snap *myq.Snapshot
		err  error
	)
	if needsLogin || api == nil {
		// Fresh client per login: never reuse a session handle across
		// credential pairs.
		api = m.newAPI()
		snap, err = api.Login(ctx, email, password)
	} else {
		snap, err = api.RefreshDevices(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("refreshing session: %w", err)
	}

	if snap.AccessToken == "" {
		m.logger.Error("upstream login failed", "status", snap.ReturnStatus)
		return nil, ErrUnauthorized
	}
	if snap.ReturnStatus != http.StatusOK {
		m.logger.Error("upstream refresh failed", "status", snap.ReturnStatus)
		return nil, fmt.Errorf("%w: status %d", ErrRefreshFailed, snap.ReturnStatus)
	}

	m.mu.Lock()
	// Install only if the credential pair is still the one this call
	// authenticated with. A pair that changed while the upstream call was
	// in flight must keep needsLogin set, or the next poll would refresh
	// a session that belongs to the old credentials.
	if m.email == email && m.password == password {
		m.api = api
		m.snapshot = snap
		m.needsLogin = false
	}
	m.mu.Unlock()

	return copyDevices(snap.Devices), nil
}

// Devices returns the device list from the last successful EnsureSession
// call, or an empty list if no session has ever succeeded.
func (m *Manager) Devices() []device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshot == nil {
		return nil
	}
	return copyDevices(m.snapshot.Devices)
}

// HasSession reports whether an access token is currently held.
func (m *Manager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot != nil && m.snapshot.AccessToken != ""
}

// Execute submits a command for a device through the active session.
func (m *Manager) Execute(ctx context.Context, dev *device.Device, command string) error {
	m.mu.Lock()
	api := m.api
	hasToken := m.snapshot != nil && m.snapshot.AccessToken != ""
	m.mu.Unlock()

	if api == nil || !hasToken {
		m.logger.Error("no active login session")
		return ErrNoActiveSession
	}

	ok, err := api.Execute(ctx, dev, command)
	if err != nil {
		return fmt.Errorf("sending %s command for %s: %w", command, dev.Name, err)
	}
	if !ok {
		m.logger.Error("command rejected", "command", command, "device", dev.Name)
		return ErrCommandFailed
	}

	return nil
}

// copyDevices returns deep copies so callers never alias the snapshot the
// manager holds.
func copyDevices(devices []device.Device) []device.Device {
	if devices == nil {
		return nil
	}
	out := make([]device.Device, len(devices))
	for i := range devices {
		out[i] = *devices[i].DeepCopy()
	}
	return out
}
