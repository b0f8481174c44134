package myq

import (
	"context"

	"github.com/smartthings-community/myq-bridge/internal/device"
)

// Snapshot is the outcome of a login or device refresh against the MyQ
// cloud API. The session manager inspects AccessToken and ReturnStatus to
// decide whether the session is usable; Devices is the full list fetched
// during the same call.
type Snapshot struct {
	AccessToken  string
	ReturnStatus int
	Devices      []device.Device
}

// API is the upstream surface the session manager consumes. The concrete
// Client implements it against the MyQ cloud; tests substitute fakes.
type API interface {
	// Login authenticates with the given credentials and fetches the
	// device list. Authentication rejections are reported through the
	// Snapshot (empty AccessToken, upstream status), not as an error;
	// errors are reserved for transport-level failures.
	Login(ctx context.Context, email, password string) (*Snapshot, error)

	// RefreshDevices re-fetches the device list using the session
	// established by Login.
	RefreshDevices(ctx context.Context) (*Snapshot, error)

	// Execute submits a command for a device. The boolean mirrors the
	// upstream accepted/rejected outcome; errors are transport failures.
	Execute(ctx context.Context, dev *device.Device, command string) (bool, error)
}

// loginRequest is the payload for the authentication endpoint.
type loginRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

// loginResponse is the payload returned on successful authentication.
type loginResponse struct {
	SecurityToken string `json:"SecurityToken"`
}

// accountsResponse is the payload of the accounts listing endpoint.
type accountsResponse struct {
	Accounts []struct {
		ID string `json:"id"`
	} `json:"accounts"`
}

// devicesResponse is the payload of the device listing endpoint.
type devicesResponse struct {
	Count int             `json:"count"`
	Items []device.Device `json:"items"`
}

// actionRequest is the payload for device command submission.
type actionRequest struct {
	ActionType string `json:"action_type"`
}
