package statusapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
)

// APIError is a failed control request. Unwrap returns the bridge error the
// code stands for, so errors.Is works the same as against a local Bridge.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("agent returned %d", e.Status)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case CodeLicenseInactive:
		return license.ErrInactive
	case CodeUnauthenticated:
		return remote.ErrUnauthenticated
	case CodeDeviceNotFound:
		return bridge.ErrDeviceNotFound
	case CodeInvalidInterval:
		return bridge.ErrInvalidInterval
	}
	return nil
}

// Client drives a running agent over its local HTTP surface.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the agent listening on addr (host:port).
// A nil hc uses a client with a generous timeout, since login and downloads
// wait on the remote server.
func NewClient(addr string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{base: "http://" + strings.TrimSuffix(addr, "/"), http: hc}
}

// Health succeeds when the agent answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// Status returns the agent's snapshot.
func (c *Client) Status(ctx context.Context) (StatusView, error) {
	var view StatusView
	err := c.do(ctx, http.MethodGet, "/status", nil, &view, nil)
	return view, err
}

// Config returns the agent's settings.
func (c *Client) Config(ctx context.Context) (bridge.Settings, error) {
	var settings bridge.Settings
	err := c.do(ctx, http.MethodGet, "/config", nil, &settings, nil)
	return settings, err
}

// Login logs the agent in. With an inactive license the result is returned
// along with an error matching license.ErrInactive.
func (c *Client) Login(ctx context.Context, email, password, serverURL string) (bridge.LoginResult, error) {
	var (
		result  bridge.LoginResult
		errBody ErrorBody
	)
	req := LoginRequest{Email: email, Password: password, ServerURL: serverURL}
	err := c.do(ctx, http.MethodPost, "/session", req, &result, &errBody)
	if err != nil && errBody.Login != nil {
		result = *errBody.Login
	}
	return result, err
}

// Logout clears the agent's session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/session", nil, nil, nil)
}

// CheckLicense runs a license check in the agent.
func (c *Client) CheckLicense(ctx context.Context) (license.State, error) {
	var st license.State
	err := c.do(ctx, http.MethodPost, "/license/check", nil, &st, nil)
	return st, err
}

// SyncDevices runs a device sync in the agent and returns the merged map.
func (c *Client) SyncDevices(ctx context.Context) (devices.Map, error) {
	var m devices.Map
	err := c.do(ctx, http.MethodPost, "/devices/sync", nil, &m, nil)
	return m, err
}

// SetFolder resolves path in the agent and assigns it to the device. An
// empty path clears the folder. The stored folder is returned.
func (c *Client) SetFolder(ctx context.Context, id, path string) (string, error) {
	var resp FolderResponse
	err := c.do(ctx, http.MethodPut, "/devices/"+url.PathEscape(id)+"/folder", FolderRequest{Path: path}, &resp, nil)
	return resp.Folder, err
}

// SetConfig applies patch in the agent and returns the resulting settings.
func (c *Client) SetConfig(ctx context.Context, patch bridge.SettingsPatch) (bridge.Settings, error) {
	var settings bridge.Settings
	err := c.do(ctx, http.MethodPatch, "/config", patch, &settings, nil)
	return settings, err
}

// CheckUpdates runs an update check in the agent.
func (c *Client) CheckUpdates(ctx context.Context) (bridge.UpdateInfo, error) {
	var info bridge.UpdateInfo
	err := c.do(ctx, http.MethodPost, "/update/check", nil, &info, nil)
	return info, err
}

// DownloadUpdate has the agent download the update and returns its path.
func (c *Client) DownloadUpdate(ctx context.Context) (string, error) {
	var resp DownloadResponse
	err := c.do(ctx, http.MethodPost, "/update/download", nil, &resp, nil)
	return resp.Path, err
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any, errBody *ErrorBody) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(ClientHeader, "cli")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach agent: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if errBody == nil {
			errBody = &ErrorBody{}
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, errBody)
		return &APIError{Status: resp.StatusCode, Code: errBody.Code, Message: errBody.Error}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
