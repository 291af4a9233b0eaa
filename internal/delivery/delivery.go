// Package delivery writes one job's payload into its device folder and
// acknowledges it to the server.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/industria/bridge/internal/clock"
	"github.com/industria/bridge/internal/events"
	"github.com/industria/bridge/internal/metrics"
	"github.com/industria/bridge/internal/remote"
)

// ErrConfigurationGap marks a job whose device is unknown or has no folder,
// or whose file name is unusable. It is an expected gap, not a failure.
var ErrConfigurationGap = errors.New("configuration gap")

// FilesystemError is a folder creation or write failure.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// AckError means the file was written but the server was not told.
type AckError struct {
	JobID string
	Err   error
}

func (e *AckError) Error() string {
	return fmt.Sprintf("acknowledge job %s: %v", e.JobID, e.Err)
}

func (e *AckError) Unwrap() error { return e.Err }

// FolderResolver returns the destination folder for a device.
type FolderResolver interface {
	DeviceFolder(deviceID string) (string, bool)
}

// Acker acknowledges a delivered job.
type Acker interface {
	CompleteJob(ctx context.Context, id string) error
}

// Pipeline delivers jobs one at a time.
type Pipeline struct {
	folders  FolderResolver
	acker    Acker
	emitter  events.Emitter
	recorder Recorder
	clock    clock.Clock
	logger   zerolog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRecorder journals every attempt.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock sets the clock used to timestamp attempts.
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New returns a Pipeline.
func New(folders FolderResolver, acker Acker, emitter events.Emitter, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		folders: folders,
		acker:   acker,
		emitter: emitter,
		clock:   clock.Real(),
		logger:  logger.With().Str("component", "delivery").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deliver runs one job through resolve, mkdir, write, acknowledge and emit,
// and returns the journaled attempt. The returned error is already logged;
// callers only need it to decide whether to continue, which they always should.
func (p *Pipeline) Deliver(ctx context.Context, job remote.Job) (Attempt, error) {
	start := p.clock.Now()
	attempt := Attempt{
		JobID:    job.ID.String(),
		DeviceID: job.DeviceID.String(),
		FileName: job.FileName,
		At:       start,
	}
	log := p.logger.With().Str("job", attempt.JobID).Str("device", attempt.DeviceID).Logger()

	folder, ok := p.folders.DeviceFolder(attempt.DeviceID)
	if !ok {
		log.Warn().Msgf("no folder configured for device %s; job skipped", attempt.DeviceID)
		return p.finish(ctx, attempt, metrics.OutcomeSkipped, start,
			fmt.Errorf("job %s: device %s has no folder: %w", attempt.JobID, attempt.DeviceID, ErrConfigurationGap))
	}
	attempt.Folder = folder

	name, ok := safeName(job.FileName)
	if !ok {
		log.Warn().Str("file", job.FileName).Msg("unusable file name; job skipped")
		return p.finish(ctx, attempt, metrics.OutcomeSkipped, start,
			fmt.Errorf("job %s: file name %q: %w", attempt.JobID, job.FileName, ErrConfigurationGap))
	}
	attempt.FileName = name

	if err := os.MkdirAll(folder, 0o755); err != nil {
		log.Error().Err(err).Str("folder", folder).Msg("create destination folder failed")
		return p.finish(ctx, attempt, metrics.OutcomeWriteError, start,
			&FilesystemError{Op: "create folder", Path: folder, Err: err})
	}

	target := filepath.Join(folder, name)
	if err := os.WriteFile(target, []byte(job.Content), 0o644); err != nil {
		log.Error().Err(err).Str("path", target).Msg("write job file failed")
		return p.finish(ctx, attempt, metrics.OutcomeWriteError, start,
			&FilesystemError{Op: "write", Path: target, Err: err})
	}
	attempt.Path = target
	log.Info().Msgf("job file written: %s", target)

	if err := p.acker.CompleteJob(ctx, attempt.JobID); err != nil {
		log.Error().Err(err).Msg("acknowledge job failed; server may redeliver")
		return p.finish(ctx, attempt, metrics.OutcomeAckError, start, &AckError{JobID: attempt.JobID, Err: err})
	}
	attempt.Acked = true

	p.emitter.Emit(events.JobCompleted{JobID: attempt.JobID, FileName: name, Folder: folder})
	return p.finish(ctx, attempt, metrics.OutcomeDelivered, start, nil)
}

func (p *Pipeline) finish(ctx context.Context, attempt Attempt, outcome string, start time.Time, err error) (Attempt, error) {
	attempt.Outcome = outcome
	if err != nil {
		attempt.Error = err.Error()
	}
	metrics.RecordDelivery(outcome, p.clock.Now().Sub(start))
	if p.recorder != nil {
		if rerr := p.recorder.Record(ctx, attempt); rerr != nil {
			p.logger.Warn().Err(rerr).Str("job", attempt.JobID).Msg("journal write failed")
		}
	}
	return attempt, err
}

// safeName reduces name to its base so a job cannot write outside its folder.
func safeName(name string) (string, bool) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", false
	}
	base := filepath.Base(name)
	if base == "." || base == ".." || base == "/" {
		return "", false
	}
	return base, true
}
