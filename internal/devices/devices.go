// Package devices holds the per-device destination folder map and the merge
// rules used when the server's device list is reconciled into it.
package devices

import "strings"

// Device is one monitored machine. JSON keys follow the server payload; TOML
// keys are what the local store persists.
type Device struct {
	ID     string `json:"id" toml:"-"`
	Name   string `json:"nombre" toml:"name"`
	Vendor string `json:"marca" toml:"vendor"`
	Folder string `json:"carpetaDestino" toml:"folder"`
}

// Map indexes devices by id.
type Map map[string]Device

// Clone returns an independent copy of m. A nil map clones to an empty one.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for id, dev := range m {
		out[id] = dev
	}
	return out
}

// Folder returns the configured destination for id. ok is false when the
// device is unknown or has no folder.
func (m Map) Folder(id string) (folder string, ok bool) {
	dev, found := m[id]
	if !found {
		return "", false
	}
	folder = strings.TrimSpace(dev.Folder)
	return folder, folder != ""
}

// Merge folds the server's device list into local and returns the result;
// local is not modified.
//
// Unknown ids are inserted with whatever folder the server provides. Known ids
// get Name and Vendor refreshed; their Folder is only filled in when the local
// value is empty and the server has one. A folder set locally is never
// overwritten.
func Merge(local Map, incoming []Device) Map {
	out := local.Clone()
	for _, dev := range incoming {
		id := strings.TrimSpace(dev.ID)
		if id == "" {
			continue
		}
		current, known := out[id]
		if !known {
			dev.ID = id
			out[id] = dev
			continue
		}
		current.ID = id
		current.Name = dev.Name
		current.Vendor = dev.Vendor
		if strings.TrimSpace(current.Folder) == "" && strings.TrimSpace(dev.Folder) != "" {
			current.Folder = dev.Folder
		}
		out[id] = current
	}
	return out
}

// WithIDs fills each entry's ID from its key. Maps decoded from the store do
// not carry the id inside the record.
func (m Map) WithIDs() Map {
	for id, dev := range m {
		dev.ID = id
		m[id] = dev
	}
	return m
}
