package remote

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/industria/bridge/internal/devices"
)

// ID accepts both JSON strings and numbers; the server is not consistent.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as text.
func (id ID) String() string { return string(id) }

// Job mirrors one entry of the pending jobs list.
type Job struct {
	ID       ID     `json:"id"`
	DeviceID ID     `json:"maquinaId"`
	FileName string `json:"nombreArchivo"`
	Content  string `json:"contenidoArchivo"`
}

// License mirrors the license status payload.
type License struct {
	Active  bool   `json:"activa"`
	Status  string `json:"estado"`
	Message string `json:"mensaje"`
}

// Version mirrors the public version metadata.
type Version struct {
	Version      string `json:"version"`
	ReleaseNotes string `json:"releaseNotes"`
	DownloadURL  string `json:"downloadUrl"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// deviceRecord is the wire form of a device; ids may be numeric.
type deviceRecord struct {
	ID     ID     `json:"id"`
	Name   string `json:"nombre"`
	Vendor string `json:"marca"`
	Folder string `json:"carpetaDestino"`
}

func (r deviceRecord) device() devices.Device {
	return devices.Device{
		ID:     r.ID.String(),
		Name:   r.Name,
		Vendor: r.Vendor,
		Folder: r.Folder,
	}
}

// errorBody covers the error shapes the server uses.
type errorBody struct {
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
	Error   string `json:"error"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Message, b.Mensaje, b.Error} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
