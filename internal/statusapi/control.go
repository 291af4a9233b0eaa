package statusapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/industria/bridge/internal/bridge"
	"github.com/industria/bridge/internal/license"
	"github.com/industria/bridge/internal/remote"
)

// ClientHeader must be present on every mutating request.
const ClientHeader = "X-Bridge-Client"

// Error codes carried in ErrorBody.Code.
const (
	CodeBadRequest      = "bad_request"
	CodeLicenseInactive = "license_inactive"
	CodeUnauthenticated = "unauthenticated"
	CodeDeviceNotFound  = "device_not_found"
	CodeInvalidInterval = "invalid_interval"
	CodeInvalidFolder   = "invalid_folder"
	CodeUpstream        = "upstream"
	CodeInternal        = "internal"
)

// ErrorBody is the JSON form of a failed request. Login carries the session
// result when a login reached the server but the license is not active.
type ErrorBody struct {
	Error string              `json:"error"`
	Code  string              `json:"code"`
	Login *bridge.LoginResult `json:"login,omitempty"`
}

// LoginRequest is the body of POST /session.
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ServerURL string `json:"serverUrl,omitempty"`
}

// FolderRequest is the body of PUT /devices/{id}/folder. An empty path
// clears the folder.
type FolderRequest struct {
	Path string `json:"path"`
}

// FolderResponse reports the folder stored for a device.
type FolderResponse struct {
	ID     string `json:"id"`
	Folder string `json:"folder"`
}

// DownloadResponse reports where the update artifact was saved.
type DownloadResponse struct {
	Path string `json:"path"`
}

func requireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(ClientHeader) == "" {
			writeJSON(w, http.StatusForbidden, ErrorBody{Error: "missing " + ClientHeader + " header", Code: CodeBadRequest})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Config())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "email and password are required", Code: CodeBadRequest})
		return
	}
	result, err := s.ctrl.Login(r.Context(), req.Email, req.Password, req.ServerURL)
	if errors.Is(err, license.ErrInactive) {
		writeJSON(w, http.StatusConflict, ErrorBody{Error: err.Error(), Code: CodeLicenseInactive, Login: &result})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Logout(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheckLicense(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Status().Connected {
		s.writeError(w, remote.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.CheckLicense(r.Context()))
}

func (s *Server) handleSyncDevices(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Status().Connected {
		s.writeError(w, remote.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.SyncDevices(r.Context()))
}

func (s *Server) handleSetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid device id", Code: CodeBadRequest})
		return
	}
	var req FolderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	folder := ""
	if strings.TrimSpace(req.Path) != "" {
		resolved, err := s.ctrl.SelectFolder(req.Path)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeInvalidFolder})
			return
		}
		folder = resolved
	}
	if err := s.ctrl.SetDeviceFolder(id, folder); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FolderResponse{ID: id, Folder: folder})
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var patch bridge.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.ctrl.SetConfig(patch); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Config())
}

func (s *Server) handleCheckUpdates(w http.ResponseWriter, r *http.Request) {
	info, err := s.ctrl.CheckUpdates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDownloadUpdate(w http.ResponseWriter, r *http.Request) {
	path, err := s.ctrl.DownloadUpdate(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DownloadResponse{Path: path})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid JSON body: " + err.Error(), Code: CodeBadRequest})
		return false
	}
	return true
}

// writeError maps the bridge's error values onto status codes and ErrorBody
// codes that Client turns back into the same values.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		httpErr *remote.HTTPError
		netErr  *remote.NetworkError
	)
	switch {
	case errors.Is(err, license.ErrInactive):
		writeJSON(w, http.StatusConflict, ErrorBody{Error: err.Error(), Code: CodeLicenseInactive})
	case errors.Is(err, remote.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: "not logged in", Code: CodeUnauthenticated})
	case errors.Is(err, bridge.ErrDeviceNotFound):
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: err.Error(), Code: CodeDeviceNotFound})
	case errors.Is(err, bridge.ErrInvalidInterval):
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeInvalidInterval})
	case errors.As(err, &httpErr), errors.As(err, &netErr):
		writeJSON(w, http.StatusBadGateway, ErrorBody{Error: remote.Message(err), Code: CodeUpstream})
	default:
		s.logger.Error().Err(err).Msg("control request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: err.Error(), Code: CodeInternal})
	}
}
