package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/birthdaybot/internal/config"
	"github.com/edgard/birthdaybot/internal/database"
	"github.com/edgard/birthdaybot/internal/scan"
)

// MembershipChecker looks up whether a user currently belongs to a group.
type MembershipChecker interface {
	GetMembershipStatus(ctx context.Context, groupID, memberID int64) (scan.MembershipStatus, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Members  MembershipChecker
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}
