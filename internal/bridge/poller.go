package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/industria/bridge/internal/metrics"
	"github.com/industria/bridge/internal/remote"
	"github.com/industria/bridge/internal/schedule"
	"github.com/industria/bridge/internal/store"
)

func (b *Bridge) pollInterval() time.Duration {
	b.mu.Lock()
	ms := b.data.PollingInterval
	b.mu.Unlock()
	if ms <= 0 {
		ms = store.DefaultPollingInterval
	}
	return time.Duration(ms) * time.Millisecond
}

// startPolling starts or restarts the poller with the stored interval.
func (b *Bridge) startPolling() {
	interval := b.pollInterval()
	b.sched.Start(schedule.Poll, interval, 0, b.pollTick)
	metrics.SetPolling(true)
	b.logger.Info().Msgf("polling started (every %s)", interval)
	b.publishStatus()
}

func (b *Bridge) stopPolling() {
	if !b.sched.Running(schedule.Poll) {
		return
	}
	b.sched.Stop(schedule.Poll)
	metrics.SetPolling(false)
	b.logger.Info().Msg("polling stopped")
	b.publishStatus()
}

// pollTick fetches pending jobs and delivers them one at a time in server
// order. Nothing escapes the tick: every failure is logged.
func (b *Bridge) pollTick(ctx context.Context) {
	if b.Token() == "" {
		metrics.PollTicks.WithLabelValues("unauthenticated").Inc()
		return
	}
	if !b.License().Active {
		metrics.PollTicks.WithLabelValues("license_inactive").Inc()
		b.logger.Info().Msg("license inactive; skipping poll")
		return
	}

	b.status.SetInProgress(true)
	defer b.status.SetInProgress(false)

	jobs, err := b.gateway.FetchJobs(ctx)
	b.status.RecordPoll(b.clock.Now(), err)
	if err != nil {
		metrics.PollTicks.WithLabelValues("fetch_error").Inc()
		if errors.Is(err, remote.ErrUnauthenticated) {
			return
		}
		b.logger.Error().Err(err).Msg("fetch jobs failed")
		return
	}
	metrics.PollTicks.WithLabelValues("fetched").Inc()
	metrics.JobsFetched.Add(float64(len(jobs)))
	if len(jobs) == 0 {
		return
	}

	b.logger.Info().Msgf("received %d pending job(s)", len(jobs))
	for _, job := range jobs {
		attempt, err := b.pipeline.Deliver(ctx, job)
		if err != nil {
			continue
		}
		b.status.RecordDelivery(attempt.Path)
	}
}
