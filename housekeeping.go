package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Housekeeping runs periodic background jobs that sit outside any room
type Housekeeping struct {
	sched gocron.Scheduler
}

// StartHousekeeping schedules the stats logger every interval
func StartHousekeeping(interval time.Duration, hub *Hub, rooms *Registry, rec *Recorder, logger *slog.Logger) (*Housekeeping, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { logStats(hub, rooms, rec, logger) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("stats"),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("schedule stats job: %w", err)
	}
	sched.Start()
	return &Housekeeping{sched: sched}, nil
}

// Stop waits for running jobs and shuts the scheduler down
func (h *Housekeeping) Stop() error {
	return h.sched.Shutdown()
}

func logStats(hub *Hub, rooms *Registry, rec *Recorder, logger *slog.Logger) {
	st := rooms.Stats()
	attrs := []any{
		"rooms", st.Rooms,
		"public", st.Public,
		"private", st.Private,
		"playing", st.Playing,
		"players", st.Players,
		"spectators", st.Spectators,
		"connections", hub.TotalConns(),
	}
	if rec != nil {
		written, dropped := rec.Counts()
		attrs = append(attrs, "matches_written", written, "matches_dropped", dropped)
	}
	logger.Info("stats", attrs...)
}
