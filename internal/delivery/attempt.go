package delivery

import (
	"context"
	"time"
)

// Attempt is the record of one delivery try.
type Attempt struct {
	JobID    string    `json:"jobId"`
	DeviceID string    `json:"deviceId"`
	FileName string    `json:"fileName"`
	Folder   string    `json:"folder"`
	Path     string    `json:"path,omitempty"` // set once the file is written
	Outcome  string    `json:"outcome"`
	Acked    bool      `json:"acked"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Recorder persists attempts. A failing recorder never fails a delivery.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}
