// Package cron fires scheduled conversation turns from the configured
// job list.
package cron

import (
	"context"
	"fmt"
	"log/slog"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/switchboard-ai/switchboard/internal/bus"
	"github.com/switchboard-ai/switchboard/internal/config"
)

// Scheduler turns config.CronJobConfig entries into recurring inbound
// messages on the bus. Each firing runs as a normal conversation turn
// against the job's session, so jobs accumulate history like any chat.
type Scheduler struct {
	bus  *bus.MessageBus
	jobs []config.CronJobConfig
	cron *robfigcron.Cron
}

func NewScheduler(cfg config.CronConfig, b *bus.MessageBus) *Scheduler {
	return &Scheduler{
		bus:  b,
		jobs: cfg.Jobs,
		cron: robfigcron.New(),
	}
}

// Jobs returns the number of configured jobs.
func (s *Scheduler) Jobs() int { return len(s.jobs) }

// Start validates and arms every job, then blocks until ctx is cancelled.
// A job with an invalid schedule fails Start rather than being skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Schedule == "" || job.Prompt == "" {
			return fmt.Errorf("cron job %q: schedule and prompt are required", job.Name)
		}
		job := job
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.fire(job) }); err != nil {
			return fmt.Errorf("cron job %q: %w", job.Name, err)
		}
		slog.Info("cron: job armed", "name", job.Name, "schedule", job.Schedule)
	}

	s.cron.Start()
	slog.Info("cron: started", "jobs", len(s.jobs))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// fire publishes one scheduled turn. The chat id keys the session, so a
// job without an explicit sessionId gets its own conversation thread.
func (s *Scheduler) fire(job config.CronJobConfig) {
	chatID := job.SessionID
	if chatID == "" {
		chatID = "job:" + job.Name
	}

	slog.Info("cron: firing job", "name", job.Name, "chat", chatID)
	msg := bus.NewInboundMessage(bus.ChannelCron, "cron", chatID, job.Prompt)
	msg.SetProvider(job.Provider)

	select {
	case s.bus.Inbound <- msg:
	default:
		slog.Warn("cron: bus full, dropping firing", "name", job.Name)
	}
}
