package bot

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edgard/birthdaybot/internal/bot/tasks"
	"github.com/edgard/birthdaybot/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func schedulerConfig(runOnStart bool) *config.SchedulerConfig {
	return &config.SchedulerConfig{
		Timezone:    "Europe/Moscow",
		TriggerTime: "09:00",
		DaysOfWeek:  config.DefaultDaysOfWeek,
		RunOnStart:  runOnStart,
		Tasks: map[string]config.TaskConfig{
			tasks.SQLMaintenanceTask: {Enabled: true, Schedule: "0 4 * * 0"},
			"unknown_task":           {Enabled: true, Schedule: "* * * * *"},
		},
	}
}

func jobNames(s *Scheduler) []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

func TestSchedulerRegistersJobs(t *testing.T) {
	t.Parallel()

	var scans atomic.Int32
	taskMap := map[string]tasks.ScheduledTaskFunc{
		tasks.BirthdayScanTask:   func(context.Context) error { scans.Add(1); return nil },
		tasks.SQLMaintenanceTask: func(context.Context) error { return nil },
	}

	s, err := NewScheduler(discardLogger(), schedulerConfig(false), taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { require.NoError(t, s.Stop()) }()

	require.Equal(t, []string{tasks.BirthdayScanTask, tasks.SQLMaintenanceTask}, jobNames(s))
	require.Error(t, s.Start(context.Background()), "second start must fail")

	for _, j := range s.scheduler.Jobs() {
		if j.Name() != tasks.BirthdayScanTask {
			continue
		}
		next, err := j.NextRun()
		require.NoError(t, err)
		local := next.In(time.FixedZone("MSK", 3*60*60))
		require.Equal(t, 9, local.Hour())
		require.Equal(t, 0, local.Minute())
	}
	require.Zero(t, scans.Load())
}

func TestSchedulerRunOnStart(t *testing.T) {
	t.Parallel()

	var scans atomic.Int32
	taskMap := map[string]tasks.ScheduledTaskFunc{
		tasks.BirthdayScanTask:   func(context.Context) error { scans.Add(1); return nil },
		tasks.SQLMaintenanceTask: func(context.Context) error { return nil },
	}

	s, err := NewScheduler(discardLogger(), schedulerConfig(true), taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return scans.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stopping twice is a no-op")
}

func TestSchedulerErrors(t *testing.T) {
	t.Parallel()

	_, err := NewScheduler(discardLogger(), nil, nil)
	require.Error(t, err)

	bad := schedulerConfig(false)
	bad.Timezone = "Nowhere/Special"
	_, err = NewScheduler(discardLogger(), bad, nil)
	require.ErrorIs(t, err, config.ErrConfiguration)

	s, err := NewScheduler(discardLogger(), schedulerConfig(false), map[string]tasks.ScheduledTaskFunc{})
	require.NoError(t, err)
	require.Error(t, s.Start(context.Background()), "birthday scan must be registered")
}
