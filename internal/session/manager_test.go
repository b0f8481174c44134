package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/smartthings-community/myq-bridge/internal/device"
	"github.com/smartthings-community/myq-bridge/internal/myq"
)

// fakeAPI is a scriptable upstream client.
type fakeAPI struct {
	mu           sync.Mutex
	loginSnap    *myq.Snapshot
	refreshSnap  *myq.Snapshot
	loginErr     error
	refreshErr   error
	executeOK    bool
	executeErr   error
	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	executeCalls atomic.Int64
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (*myq.Snapshot, error) {
	f.loginCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginSnap, f.loginErr
}

func (f *fakeAPI) RefreshDevices(_ context.Context) (*myq.Snapshot, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshSnap, f.refreshErr
}

func (f *fakeAPI) Execute(_ context.Context, _ *device.Device, _ string) (bool, error) {
	f.executeCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executeOK, f.executeErr
}

func goodSnapshot() *myq.Snapshot {
	return &myq.Snapshot{
		AccessToken:  "tok-123",
		ReturnStatus: http.StatusOK,
		Devices: []device.Device{
			{SerialNumber: "GD01", Name: "Garage Door", State: device.State{"door_state": "closed"}},
		},
	}
}

func newTestManager(api *fakeAPI) *Manager {
	return NewManager(func() myq.API { return api })
}

func TestManager_SetCredentials_RejectsEmpty(t *testing.T) {
	m := newTestManager(&fakeAPI{})

	if m.SetCredentials("", "secret") {
		t.Error("SetCredentials accepted empty email")
	}
	if m.SetCredentials("user@example.com", "") {
		t.Error("SetCredentials accepted empty password")
	}
	if !m.SetCredentials("user@example.com", "secret") {
		t.Error("SetCredentials rejected valid pair")
	}
}

func TestManager_FirstCallLogsIn(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot(), refreshSnap: goodSnapshot()}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")

	devices, err := m.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	if api.loginCalls.Load() != 1 {
		t.Errorf("login calls = %d, want 1", api.loginCalls.Load())
	}
	if api.refreshCalls.Load() != 0 {
		t.Errorf("refresh calls = %d, want 0", api.refreshCalls.Load())
	}
	if len(devices) != 1 || devices[0].SerialNumber != "GD01" {
		t.Errorf("devices = %+v, want one device GD01", devices)
	}
}

func TestManager_SecondCallRefreshes(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot(), refreshSnap: goodSnapshot()}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")

	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("first EnsureSession() error = %v", err)
	}
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("second EnsureSession() error = %v", err)
	}

	if api.loginCalls.Load() != 1 {
		t.Errorf("login calls = %d, want 1", api.loginCalls.Load())
	}
	if api.refreshCalls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", api.refreshCalls.Load())
	}
}

func TestManager_CredentialChangeForcesLogin(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot(), refreshSnap: goodSnapshot()}
	m := newTestManager(api)

	m.SetCredentials("user@example.com", "secret")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	m.SetCredentials("other@example.com", "different")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() after credential change error = %v", err)
	}

	if api.loginCalls.Load() != 2 {
		t.Errorf("login calls = %d, want 2 (credential change must force login)", api.loginCalls.Load())
	}
	if api.refreshCalls.Load() != 0 {
		t.Errorf("refresh calls = %d, want 0", api.refreshCalls.Load())
	}
}

func TestManager_SameCredentialsIdempotent(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot(), refreshSnap: goodSnapshot()}
	m := newTestManager(api)

	m.SetCredentials("user@example.com", "secret")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	m.SetCredentials("user@example.com", "secret")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	if api.loginCalls.Load() != 1 {
		t.Errorf("login calls = %d, want 1 (same pair must not force login)", api.loginCalls.Load())
	}
}

func TestManager_EnsureSession_MissingCredentials(t *testing.T) {
	m := newTestManager(&fakeAPI{})

	_, err := m.EnsureSession(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("EnsureSession() error = %v, want ErrMissingCredentials", err)
	}
}

func TestManager_EnsureSession_Unauthorized(t *testing.T) {
	api := &fakeAPI{loginSnap: &myq.Snapshot{ReturnStatus: http.StatusUnauthorized}}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "wrong")

	_, err := m.EnsureSession(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("EnsureSession() error = %v, want ErrUnauthorized", err)
	}
	if m.HasSession() {
		t.Error("HasSession() = true after failed login")
	}

	// Failure is not sticky: the next call re-attempts from scratch.
	api.mu.Lock()
	api.loginSnap = goodSnapshot()
	api.mu.Unlock()
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Errorf("EnsureSession() after recovery error = %v", err)
	}
	if api.loginCalls.Load() != 2 {
		t.Errorf("login calls = %d, want 2", api.loginCalls.Load())
	}
}

func TestManager_EnsureSession_RefreshFailed(t *testing.T) {
	api := &fakeAPI{
		loginSnap: goodSnapshot(),
		refreshSnap: &myq.Snapshot{
			AccessToken:  "tok-123",
			ReturnStatus: http.StatusInternalServerError,
		},
	}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")

	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	_, err := m.EnsureSession(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("EnsureSession() error = %v, want ErrRefreshFailed", err)
	}
}

func TestManager_EnsureSession_TransportError(t *testing.T) {
	wantErr := errors.New("connection reset")
	api := &fakeAPI{loginErr: wantErr}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")

	_, err := m.EnsureSession(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("EnsureSession() error = %v, want wrapped transport error", err)
	}
}

func TestManager_Devices_EmptyBeforeFirstSession(t *testing.T) {
	m := newTestManager(&fakeAPI{})

	if devices := m.Devices(); len(devices) != 0 {
		t.Errorf("Devices() = %+v, want empty before first session", devices)
	}
}

func TestManager_Devices_ReturnsIsolatedCopies(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot()}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	devices := m.Devices()
	devices[0].State["door_state"] = "open"

	again := m.Devices()
	if status, _ := again[0].State.EffectiveStatus(); status != "closed" {
		t.Errorf("mutating Devices() result leaked into snapshot: status = %q, want closed", status)
	}
}

func TestManager_Execute(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot(), executeOK: true}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	dev := &device.Device{SerialNumber: "GD01", Name: "Garage Door"}
	if err := m.Execute(context.Background(), dev, "open"); err != nil {
		t.Errorf("Execute() error = %v", err)
	}

	api.mu.Lock()
	api.executeOK = false
	api.mu.Unlock()
	if err := m.Execute(context.Background(), dev, "open"); !errors.Is(err, ErrCommandFailed) {
		t.Errorf("Execute() error = %v, want ErrCommandFailed", err)
	}
}

func TestManager_Execute_NoActiveSession(t *testing.T) {
	api := &fakeAPI{executeOK: true}
	m := newTestManager(api)

	err := m.Execute(context.Background(), &device.Device{SerialNumber: "GD01"}, "open")
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Execute() error = %v, want ErrNoActiveSession", err)
	}
	if api.executeCalls.Load() != 0 {
		t.Errorf("upstream execute calls = %d, want 0 without a session", api.executeCalls.Load())
	}
}

// blockingAPI signals when a login is in flight and holds it open until
// released, so a test can land a credential change mid-login.
type blockingAPI struct {
	fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) Login(ctx context.Context, email, password string) (*myq.Snapshot, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeAPI.Login(ctx, email, password)
}

func TestManager_CredentialChangeDuringLoginForcesRelogin(t *testing.T) {
	api := &blockingAPI{
		fakeAPI: fakeAPI{loginSnap: goodSnapshot(), refreshSnap: goodSnapshot()},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	m := NewManager(func() myq.API { return api })
	m.SetCredentials("old@example.com", "secret")

	done := make(chan error, 1)
	go func() {
		_, err := m.EnsureSession(context.Background())
		done <- err
	}()

	// New pair lands while the old pair's login is still in flight.
	<-api.entered
	m.SetCredentials("new@example.com", "different")
	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	// The completed old-credential login must not have installed a session;
	// the new pair still needs its own login.
	if m.HasSession() {
		t.Error("HasSession() = true, want stale login result discarded")
	}

	m.SetCredentials("new@example.com", "different")
	if _, err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession() with new credentials error = %v", err)
	}

	if got := api.loginCalls.Load(); got != 2 {
		t.Errorf("login calls = %d, want 2 (new pair must log in, not refresh)", got)
	}
	if got := api.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0 after credential change", got)
	}
}

// TestManager_ConcurrentEnsureSession exercises the documented duplicate-login
// window: callers racing on a stale session may each trigger a login. The
// manager must stay internally consistent (no torn snapshot, valid session
// afterwards); the number of logins is allowed to exceed one.
func TestManager_ConcurrentEnsureSession(t *testing.T) {
	api := &fakeAPI{loginSnap: goodSnapshot(), refreshSnap: goodSnapshot()}
	m := newTestManager(api)
	m.SetCredentials("user@example.com", "secret")

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.EnsureSession(context.Background())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: EnsureSession() error = %v", i, err)
		}
	}
	if !m.HasSession() {
		t.Error("HasSession() = false after concurrent calls")
	}
	if got := api.loginCalls.Load(); got < 1 {
		t.Errorf("login calls = %d, want at least 1", got)
	}
	if devices := m.Devices(); len(devices) != 1 {
		t.Errorf("Devices() = %+v, want consistent single-device list", devices)
	}
}
