package cron

import (
	"context"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/internal/bus"
	"github.com/switchboard-ai/switchboard/internal/config"
)

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cases := []config.CronJobConfig{
		{Name: "bad-expr", Schedule: "not a cron line", Prompt: "hi"},
		{Name: "no-schedule", Prompt: "hi"},
		{Name: "no-prompt", Schedule: "* * * * *"},
	}
	for _, job := range cases {
		s := NewScheduler(config.CronConfig{Jobs: []config.CronJobConfig{job}}, bus.NewMessageBus(1))
		ctx, cancel := context.WithCancel(context.Background())
		err := func() error {
			defer cancel()
			return s.Start(ctx)
		}()
		if err == nil || err == context.Canceled {
			t.Errorf("job %q: Start() = %v, want config error", job.Name, err)
		}
	}
}

func TestFirePublishesTurn(t *testing.T) {
	mb := bus.NewMessageBus(4)
	s := NewScheduler(config.CronConfig{}, mb)

	s.fire(config.CronJobConfig{
		Name:     "digest",
		Prompt:   "summarize the news",
		Provider: "anthropic",
	})

	select {
	case msg := <-mb.Inbound:
		if msg.Channel() != bus.ChannelCron || msg.ChatId() != "job:digest" {
			t.Errorf("envelope = %s %s", msg.Channel(), msg.ChatId())
		}
		if msg.Content() != "summarize the news" || msg.Provider() != "anthropic" {
			t.Errorf("content=%q provider=%q", msg.Content(), msg.Provider())
		}
		if msg.SessionKey() != "cron:job:digest" {
			t.Errorf("SessionKey() = %q", msg.SessionKey())
		}
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
}

func TestFireExplicitSession(t *testing.T) {
	mb := bus.NewMessageBus(4)
	s := NewScheduler(config.CronConfig{}, mb)

	s.fire(config.CronJobConfig{Name: "n", Prompt: "p", SessionID: "shared"})
	msg := <-mb.Inbound
	if msg.ChatId() != "shared" {
		t.Errorf("chat id = %q", msg.ChatId())
	}
}

func TestFireFullBusDrops(t *testing.T) {
	mb := bus.NewMessageBus(1)
	s := NewScheduler(config.CronConfig{}, mb)

	s.fire(config.CronJobConfig{Name: "a", Prompt: "x"})
	s.fire(config.CronJobConfig{Name: "b", Prompt: "y"})

	if mb.InboundSize() != 1 {
		t.Fatalf("inbound size = %d, want 1", mb.InboundSize())
	}
}

func TestSchedulerArmsJobs(t *testing.T) {
	mb := bus.NewMessageBus(4)
	s := NewScheduler(config.CronConfig{Jobs: []config.CronJobConfig{
		{Name: "hourly", Schedule: "0 * * * *", Prompt: "tick"},
		{Name: "daily", Schedule: "@daily", Prompt: "tock"},
	}}, mb)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Start() = %v, want context.Canceled", err)
	}
	if s.Jobs() != 2 {
		t.Fatalf("Jobs() = %d", s.Jobs())
	}
}
