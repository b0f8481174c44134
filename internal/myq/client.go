package myq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/smartthings-community/myq-bridge/internal/device"
	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
)

// securityTokenHeader carries the session token on authenticated requests.
const securityTokenHeader = "SecurityToken"

// Client talks to the MyQ cloud API: authentication, account resolution,
// device listing, and command submission.
//
// One Client holds at most one session. The session manager creates a fresh
// Client whenever credentials change, so a token obtained for one credential
// pair can never serve another.
//
// Thread Safety: all methods are safe for concurrent use, but concurrent
// Login calls will race on which session wins; the session manager
// documents and accepts that.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu          sync.Mutex
	accessToken string
	accountID   string
}

// NewClient creates a MyQ API client from configuration.
func NewClient(cfg config.MyQConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpc: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// Login authenticates and then fetches the device list, mirroring the
// upstream client libraries where login implies an initial refresh.
//
// An authentication rejection is not an error: the returned Snapshot carries
// the upstream status and an empty AccessToken for the caller to interpret.
func (c *Client) Login(ctx context.Context, email, password string) (*Snapshot, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/v5/Login", loginRequest{
		Username: email,
		Password: password,
	}, false)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return &Snapshot{ReturnStatus: status}, nil
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("%w: decoding login response: %w", ErrRequestFailed, err)
	}
	if lr.SecurityToken == "" {
		return &Snapshot{ReturnStatus: status}, nil
	}

	c.mu.Lock()
	c.accessToken = lr.SecurityToken
	c.accountID = ""
	c.mu.Unlock()

	return c.RefreshDevices(ctx)
}

// RefreshDevices re-fetches the device list for the authenticated account.
func (c *Client) RefreshDevices(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	accountID, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodGet, "/api/v5.1/Accounts/"+accountID+"/Devices", nil, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return &Snapshot{AccessToken: token, ReturnStatus: status}, nil
	}

	var dr devicesResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, fmt.Errorf("%w: decoding device list: %w", ErrRequestFailed, err)
	}

	return &Snapshot{
		AccessToken:  token,
		ReturnStatus: status,
		Devices:      dr.Items,
	}, nil
}

// Execute submits a command (e.g. "open", "close", "turnon", "turnoff") for
// a device. The boolean reports whether the upstream accepted the command.
func (c *Client) Execute(ctx context.Context, dev *device.Device, command string) (bool, error) {
	c.mu.Lock()
	token := c.accessToken
	accountID := c.accountID
	c.mu.Unlock()
	if token == "" {
		return false, ErrNotAuthenticated
	}
	if accountID == "" {
		var err error
		accountID, err = c.resolveAccount(ctx)
		if err != nil {
			return false, err
		}
	}

	path := "/api/v5.1/Accounts/" + accountID + "/Devices/" + dev.SerialNumber + "/actions"
	status, _, err := c.do(ctx, http.MethodPut, path, actionRequest{ActionType: command}, true)
	if err != nil {
		return false, err
	}

	return status == http.StatusNoContent || status == http.StatusOK, nil
}

// resolveAccount looks up (and caches) the account ID for the session.
func (c *Client) resolveAccount(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accountID != "" {
		id := c.accountID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	status, body, err := c.do(ctx, http.MethodGet, "/api/v5.1/Accounts", nil, true)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: account lookup returned status %d", ErrRequestFailed, status)
	}

	var ar accountsResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", fmt.Errorf("%w: decoding account list: %w", ErrRequestFailed, err)
	}
	if len(ar.Accounts) == 0 {
		return "", ErrNoAccount
	}

	c.mu.Lock()
	c.accountID = ar.Accounts[0].ID
	id := c.accountID
	c.mu.Unlock()
	return id, nil
}

// do performs a single API request and returns the status code and body.
// Transport failures are wrapped in ErrRequestFailed.
func (c *Client) do(ctx context.Context, method, path string, payload any, authenticated bool) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: encoding request: %w", ErrRequestFailed, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		c.mu.Lock()
		req.Header.Set(securityTokenHeader, c.accessToken)
		c.mu.Unlock()
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	return resp.StatusCode, body, nil
}
