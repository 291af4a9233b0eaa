// Package store persists the bridge session and user preferences.
// The data lives in a TOML file, by default <data dir>/config.toml.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/industria/bridge/internal/devices"
)

// Data is everything the bridge keeps across restarts.
type Data struct {
	ServerURL       string      `toml:"server_url"`
	AuthToken       string      `toml:"auth_token"`
	UserEmail       string      `toml:"user_email"`
	Machines        devices.Map `toml:"machines"`
	PollingInterval int         `toml:"polling_interval"` // milliseconds
	AutoStart       bool        `toml:"auto_start"`
	MinimizeToTray  bool        `toml:"minimize_to_tray"`
}

const (
	// DefaultServerURL is used when none was stored or supplied at login.
	DefaultServerURL = "https://industria.app"
	// DefaultPollingInterval is the job poll period in milliseconds.
	DefaultPollingInterval = 5000
)

// Defaults returns the values used for keys missing from the file.
func Defaults() Data {
	return Data{
		ServerURL:       DefaultServerURL,
		Machines:        devices.Map{},
		PollingInterval: DefaultPollingInterval,
		AutoStart:       true,
		MinimizeToTray:  true,
	}
}

// Clone returns a copy that shares no maps with d.
func (d Data) Clone() Data {
	d.Machines = d.Machines.Clone()
	return d
}

// File is a TOML-backed store. Save is serialized so concurrent writers
// never interleave partial files.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// ErrCorrupt marks a store file that could not be parsed. Load moves such a
// file aside to <path>.corrupt and returns defaults along with this error, so
// the next Save does not destroy what was there.
var ErrCorrupt = errors.New("store file is corrupt")

// Load reads the store, falling back to defaults for a missing file or
// missing keys. A file that cannot be read is an error; one that cannot be
// parsed is moved aside and reported with ErrCorrupt.
func (f *File) Load() (Data, error) {
	data := Defaults()

	bytes, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("read store: %w", err)
	}

	if err := toml.Unmarshal(bytes, &data); err != nil {
		aside := f.path + ".corrupt"
		if rerr := os.Rename(f.path, aside); rerr != nil {
			return Defaults(), fmt.Errorf("move corrupt store aside: %w", rerr)
		}
		return Defaults(), fmt.Errorf("%w (moved to %s): %v", ErrCorrupt, aside, err)
	}

	if strings.TrimSpace(data.ServerURL) == "" {
		data.ServerURL = DefaultServerURL
	}
	if data.PollingInterval <= 0 {
		data.PollingInterval = DefaultPollingInterval
	}
	if data.Machines == nil {
		data.Machines = devices.Map{}
	}
	data.Machines.WithIDs()

	return data, nil
}

// Save writes the store, creating directories as needed. The file is written
// to a temp file and renamed so a crash never leaves it truncated.
func (f *File) Save(data Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	bytes, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.toml")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
