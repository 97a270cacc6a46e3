package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/birthdaybot/internal/bot/tasks"
	"github.com/edgard/birthdaybot/internal/config"
	"github.com/edgard/birthdaybot/internal/logger"
)

// Scheduler manages scheduled tasks using the gocron library. The birthday
// scan runs at a fixed wall-clock time on the configured weekdays; auxiliary
// tasks run on their own cron expressions.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a new scheduler instance using gocron, evaluating all
// schedules in the configured timezone.
func NewScheduler(log *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil {
		return nil, fmt.Errorf("scheduler config cannot be nil")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithLogger(logger.NewGocronAdapter(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log.With("component", "scheduler", "timezone", loc.String()),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules all enabled tasks and starts the scheduler. Task runs get
// ctx, so cancelling it aborts work in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.logger.Debug("Configuring scheduler jobs...")

	if err := s.scheduleBirthdayScan(ctx); err != nil {
		return err
	}
	scheduledCount := 1

	for taskName, taskConfig := range s.cfg.Tasks {
		if taskName == tasks.BirthdayScanTask {
			s.logger.Warn("Ignoring cron schedule for birthday scan, it uses trigger_time", "task_name", taskName)
			continue
		}
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		if taskConfig.Schedule == "" {
			s.logger.Warn("Scheduled task enabled but has empty schedule, skipping", "task_name", taskName)
			continue
		}

		job, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, false),
			gocron.NewTask(s.runTask, ctx, taskName, taskFunc),
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
			continue
		}

		s.logJob(job, "schedule", taskConfig.Schedule)
		scheduledCount++
	}

	if s.cfg.RunOnStart {
		if err := s.runScanOnStart(ctx); err != nil {
			return err
		}
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "tasks_scheduled", scheduledCount)

	return nil
}

func (s *Scheduler) scheduleBirthdayScan(ctx context.Context) error {
	scanFunc, exists := s.taskMap[tasks.BirthdayScanTask]
	if !exists {
		return fmt.Errorf("birthday scan task is not registered")
	}

	hour, minute, err := s.cfg.TriggerClock()
	if err != nil {
		return err
	}
	days, err := s.cfg.Weekdays()
	if err != nil {
		return err
	}

	job, err := s.scheduler.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(days[0], days[1:]...), gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(s.runTask, ctx, tasks.BirthdayScanTask, scanFunc),
		gocron.WithName(tasks.BirthdayScanTask),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule birthday scan: %w", err)
	}

	s.logJob(job, "trigger_time", s.cfg.TriggerTime, "days", s.cfg.DaysOfWeek)
	return nil
}

func (s *Scheduler) runScanOnStart(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
		gocron.NewTask(s.runTask, ctx, tasks.BirthdayScanTask+"_on_start", s.taskMap[tasks.BirthdayScanTask]),
		gocron.WithName(tasks.BirthdayScanTask+"_on_start"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule startup birthday scan: %w", err)
	}
	s.logger.Info("Birthday scan will run once at startup")
	return nil
}

// runTask wraps a task with logging and error handling.
func (s *Scheduler) runTask(ctx context.Context, name string, taskFunc tasks.ScheduledTaskFunc) {
	if ctx.Err() != nil {
		s.logger.Info("Skipping scheduled task, shutting down", "task_name", name)
		return
	}

	s.logger.Info("Running scheduled task", "task_name", name)
	startTime := time.Now()
	if taskErr := taskFunc(ctx); taskErr != nil {
		s.logger.Error("Scheduled task failed", "task_name", name, "error", taskErr)
	}
	s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
}

func (s *Scheduler) logJob(job gocron.Job, attrs ...any) {
	attrs = append([]any{"task_name", job.Name()}, attrs...)
	if nextRun, err := job.NextRun(); err == nil {
		attrs = append(attrs, "next_run", nextRun.Format(time.RFC3339))
	}
	s.logger.Info("Scheduled task", attrs...)
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	s.logger.Debug("Stopping scheduler gracefully (waiting for jobs)...")
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
