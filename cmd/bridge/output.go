package main

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/industria/bridge/internal/devices"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func configured(m devices.Map) int {
	n := 0
	for id := range m {
		if _, ok := m.Folder(id); ok {
			n++
		}
	}
	return n
}
