package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/birthdaybot/internal/birthday"
)

// newBirthdayScanTask creates the daily scan task. It evaluates the calendar
// day of the configured timezone at the moment it runs.
func newBirthdayScanTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", BirthdayScanTask)

	return func(ctx context.Context) error {
		today := deps.today()
		log.InfoContext(ctx, "Starting birthday scan", "date", today.String())
		startTime := time.Now()

		actions, err := deps.Scanner.Run(ctx, today)
		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Birthday scan failed", "error", err, "duration", duration)
			return fmt.Errorf("birthday scan failed: %w", err)
		}

		counts := make(map[birthday.Transition]int, 3)
		for _, a := range actions {
			counts[a.Kind]++
		}

		log.InfoContext(ctx, "Birthday scan completed",
			"date", today.String(),
			"actions", len(actions),
			"pre_birthday", counts[birthday.PreBirthday],
			"birthday", counts[birthday.OnBirthday],
			"post_birthday", counts[birthday.PostBirthday],
			"duration", duration,
		)
		return nil
	}
}
