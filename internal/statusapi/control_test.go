package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/devices"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/state"
)

func send(t *testing.T, h http.Handler, method, target, body string, withHeader bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if withHeader {
		req.Header.Set(ClientHeader, "test")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestControlRoutes_RequireClientHeader(t *testing.T) {
	routes := []struct{ method, target string }{
		{http.MethodPost, "/session"},
		{http.MethodDelete, "/session"},
		{http.MethodPost, "/license/check"},
		{http.MethodPost, "/devices/sync"},
		{http.MethodPut, "/devices/1/folder"},
		{http.MethodPatch, "/config"},
		{http.MethodPost, "/update/check"},
		{http.MethodPost, "/update/download"},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.target, func(t *testing.T) {
			ctrl := &fakeController{}
			srv := New("127.0.0.1:0", ctrl, nil, zerolog.Nop())
			rec := send(t, srv.Handler(), route.method, route.target, `{}`, false)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("code = %d, want 403", rec.Code)
			}
			if ctrl.loggedOut || ctrl.folders != nil {
				t.Fatal("controller was called without the client header")
			}
		})
	}
}

func TestControlRoutes_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		ctrl     *fakeController
		method   string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "bad json",
			ctrl:     &fakeController{},
			method:   http.MethodPost,
			target:   "/session",
			body:     `{`,
			wantCode: http.StatusBadRequest,
			wantErr:  CodeBadRequest,
		},
		{
			name:     "missing credentials",
			ctrl:     &fakeController{},
			method:   http.MethodPost,
			target:   "/session",
			body:     `{"email":" "}`,
			wantCode: http.StatusBadRequest,
			wantErr:  CodeBadRequest,
		},
		{
			name:     "rejected credentials",
			ctrl:     &fakeController{loginErr: &remote.HTTPError{Status: 400, Message: "Credenciales inválidas"}},
			method:   http.MethodPost,
			target:   "/session",
			body:     `{"email":"a@b.c","password":"x"}`,
			wantCode: http.StatusBadGateway,
			wantErr:  CodeUpstream,
		},
		{
			name:     "sync without session",
			ctrl:     &fakeController{},
			method:   http.MethodPost,
			target:   "/devices/sync",
			wantCode: http.StatusUnauthorized,
			wantErr:  CodeUnauthenticated,
		},
		{
			name:     "license check without session",
			ctrl:     &fakeController{},
			method:   http.MethodPost,
			target:   "/license/check",
			wantCode: http.StatusUnauthorized,
			wantErr:  CodeUnauthenticated,
		},
		{
			name:     "unknown device",
			ctrl:     &fakeController{folderErr: fmt.Errorf("%w: 9", bridge.ErrDeviceNotFound)},
			method:   http.MethodPut,
			target:   "/devices/9/folder",
			body:     `{"path":"/cnc"}`,
			wantCode: http.StatusNotFound,
			wantErr:  CodeDeviceNotFound,
		},
		{
			name:     "folder not a directory",
			ctrl:     &fakeController{selectErr: errors.New("not a directory")},
			method:   http.MethodPut,
			target:   "/devices/1/folder",
			body:     `{"path":"/etc/passwd"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  CodeInvalidFolder,
		},
		{
			name:     "bad interval",
			ctrl:     &fakeController{configErr: bridge.ErrInvalidInterval},
			method:   http.MethodPatch,
			target:   "/config",
			body:     `{"pollingInterval":0}`,
			wantCode: http.StatusBadRequest,
			wantErr:  CodeInvalidInterval,
		},
		{
			name:     "update server down",
			ctrl:     &fakeController{updateErr: &remote.NetworkError{Op: "GET /updates", Err: errors.New("refused")}},
			method:   http.MethodPost,
			target:   "/update/check",
			wantCode: http.StatusBadGateway,
			wantErr:  CodeUpstream,
		},
		{
			name:     "logout persist failure",
			ctrl:     &fakeController{logoutErr: errors.New("disk full")},
			method:   http.MethodDelete,
			target:   "/session",
			wantCode: http.StatusInternalServerError,
			wantErr:  CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New("127.0.0.1:0", tt.ctrl, nil, zerolog.Nop())
			rec := send(t, srv.Handler(), tt.method, tt.target, tt.body, true)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantErr {
				t.Fatalf("error code = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestControlRoutes_LoginInactiveCarriesResult(t *testing.T) {
	ctrl := &fakeController{
		loginResult: bridge.LoginResult{
			Email:           "ops@example.com",
			License:         license.State{Status: license.StatusInactive, Message: "Licencia vencida"},
			LicenseRequired: true,
		},
		loginErr: license.ErrInactive,
	}
	srv := New("127.0.0.1:0", ctrl, nil, zerolog.Nop())
	rec := send(t, srv.Handler(), http.MethodPost, "/session", `{"email":"ops@example.com","password":"pw"}`, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != CodeLicenseInactive || body.Login == nil || !body.Login.LicenseRequired {
		t.Fatalf("body = %+v", body)
	}
	if ctrl.loggedInAs != "ops@example.com" {
		t.Fatalf("logged in as %q", ctrl.loggedInAs)
	}
}

func TestControlRoutes_SetFolder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFolder string
	}{
		{name: "assign", body: `{"path":"/cnc"}`, wantFolder: "/abs/cnc"},
		{name: "clear", body: `{"path":""}`, wantFolder: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{}
			srv := New("127.0.0.1:0", ctrl, nil, zerolog.Nop())
			rec := send(t, srv.Handler(), http.MethodPut, "/devices/7/folder", tt.body, true)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d (%s)", rec.Code, rec.Body.String())
			}
			var resp FolderResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.ID != "7" || resp.Folder != tt.wantFolder {
				t.Fatalf("response = %+v", resp)
			}
			if got, ok := ctrl.folders["7"]; !ok || got != tt.wantFolder {
				t.Fatalf("controller folder = %q (set %v)", got, ok)
			}
		})
	}
}

func newTestClient(t *testing.T, ctrl Controller) *Client {
	t.Helper()
	srv := New("127.0.0.1:0", ctrl, nil, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(strings.TrimPrefix(ts.URL, "http://"), ts.Client())
}

func TestClient_RoundTrip(t *testing.T) {
	ctrl := &fakeController{
		snap: state.Snapshot{
			Connected: true,
			UserEmail: "ops@example.com",
			License:   license.State{Active: true, Status: license.StatusActive},
			Devices:   devices.Map{"1": {ID: "1", Name: "Router"}},
		},
		settings:    bridge.Settings{ServerURL: "https://industria.app", PollingInterval: 30},
		loginResult: bridge.LoginResult{Email: "ops@example.com", License: license.State{Active: true, Status: license.StatusActive}},
	}
	client := newTestClient(t, ctrl)
	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	view, err := client.Status(ctx)
	if err != nil || view.UserEmail != "ops@example.com" || !view.LicenseActive {
		t.Fatalf("Status = %+v, %v", view, err)
	}
	result, err := client.Login(ctx, "ops@example.com", "pw", "")
	if err != nil || result.Email != "ops@example.com" || !result.License.Active {
		t.Fatalf("Login = %+v, %v", result, err)
	}
	st, err := client.CheckLicense(ctx)
	if err != nil || !st.Active {
		t.Fatalf("CheckLicense = %+v, %v", st, err)
	}
	m, err := client.SyncDevices(ctx)
	if err != nil || m["1"].Name != "Router" {
		t.Fatalf("SyncDevices = %+v, %v", m, err)
	}
	folder, err := client.SetFolder(ctx, "1", "/cnc")
	if err != nil || folder != "/abs/cnc" || ctrl.folders["1"] != "/abs/cnc" {
		t.Fatalf("SetFolder = %q, %v", folder, err)
	}
	if _, err := client.SetFolder(ctx, "line/2", "/cnc"); err != nil || ctrl.folders["line/2"] != "/abs/cnc" {
		t.Fatalf("SetFolder with escaped id: %v, folders %v", err, ctrl.folders)
	}
	interval := 10
	settings, err := client.SetConfig(ctx, bridge.SettingsPatch{PollingInterval: &interval})
	if err != nil || settings.PollingInterval != 10 {
		t.Fatalf("SetConfig = %+v, %v", settings, err)
	}
	info, err := client.CheckUpdates(ctx)
	if err != nil || !info.Available || info.LatestVersion != "1.1.0" {
		t.Fatalf("CheckUpdates = %+v, %v", info, err)
	}
	path, err := client.DownloadUpdate(ctx)
	if err != nil || path != "/tmp/bridge-1.1.0" {
		t.Fatalf("DownloadUpdate = %q, %v", path, err)
	}
	if err := client.Logout(ctx); err != nil || !ctrl.loggedOut {
		t.Fatalf("Logout: %v (called %v)", err, ctrl.loggedOut)
	}
}

func TestClient_ErrorsMatchBridgeValues(t *testing.T) {
	tests := []struct {
		name string
		ctrl *fakeController
		call func(*Client) error
		want error
	}{
		{
			name: "inactive license",
			ctrl: &fakeController{loginErr: license.ErrInactive},
			call: func(c *Client) error {
				_, err := c.Login(context.Background(), "a@b.c", "pw", "")
				return err
			},
			want: license.ErrInactive,
		},
		{
			name: "no session",
			ctrl: &fakeController{},
			call: func(c *Client) error {
				_, err := c.SyncDevices(context.Background())
				return err
			},
			want: remote.ErrUnauthenticated,
		},
		{
			name: "unknown device",
			ctrl: &fakeController{folderErr: bridge.ErrDeviceNotFound},
			call: func(c *Client) error {
				_, err := c.SetFolder(context.Background(), "x/y", "")
				return err
			},
			want: bridge.ErrDeviceNotFound,
		},
		{
			name: "bad interval",
			ctrl: &fakeController{configErr: bridge.ErrInvalidInterval},
			call: func(c *Client) error {
				_, err := c.SetConfig(context.Background(), bridge.SettingsPatch{})
				return err
			},
			want: bridge.ErrInvalidInterval,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(newTestClient(t, tt.ctrl))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Message == "" {
				t.Fatalf("err = %#v, want *APIError with a message", err)
			}
		})
	}
}

func TestClient_LoginInactiveReturnsResult(t *testing.T) {
	ctrl := &fakeController{
		loginResult: bridge.LoginResult{Email: "ops@example.com", LicenseRequired: true},
		loginErr:    license.ErrInactive,
	}
	result, err := newTestClient(t, ctrl).Login(context.Background(), "ops@example.com", "pw", "")
	if !errors.Is(err, license.ErrInactive) {
		t.Fatalf("err = %v", err)
	}
	if result.Email != "ops@example.com" || !result.LicenseRequired {
		t.Fatalf("result = %+v", result)
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	if err := NewClient(addr, nil).Health(context.Background()); err == nil {
		t.Fatal("Health succeeded against a closed listener")
	}
}
