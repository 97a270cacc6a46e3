// Package tasks implements scheduled tasks for the birthday bot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/birthdaybot/internal/birthday"
	"github.com/edgard/birthdaybot/internal/database"
	"github.com/edgard/birthdaybot/internal/scan"
)

// Scanner runs the daily birthday scan for one calendar day. *scan.Engine implements it.
type Scanner interface {
	Run(ctx context.Context, today birthday.Date) ([]scan.Action, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Scanner Scanner
	// Location is the timezone whose calendar day the scan evaluates.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d TaskDeps) today() birthday.Date {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return birthday.FromTime(now().In(loc))
}
