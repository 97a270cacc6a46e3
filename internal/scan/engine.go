// Package scan implements the daily birthday scan: for a given day it walks
// every registered group and member, works out which ritual transitions fire
// and dispatches the matching actions.
package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/birthdaybot/internal/birthday"
	"github.com/edgard/birthdaybot/internal/database"
)

// DefaultMaxParallelGroups is used when EngineConfig.MaxParallelGroups is not positive.
const DefaultMaxParallelGroups = 4

// Store is the subset of database.Store the engine reads and writes.
type Store interface {
	ListGroups(ctx context.Context) ([]int64, error)
	ListMembers(ctx context.Context, groupID int64) ([]database.Member, error)
	LastScanDate(ctx context.Context, groupID int64) (birthday.Date, bool, error)
	MarkScanned(ctx context.Context, groupID int64, day birthday.Date) error
}

// Dispatcher executes actions. *Executor implements it.
type Dispatcher interface {
	Execute(ctx context.Context, a Action) error
}

// EngineConfig tunes a scan.
type EngineConfig struct {
	LeapPolicy        birthday.LeapPolicy
	MaxParallelGroups int
	// Dedupe skips groups whose recorded last scan date is not before the
	// scanned day, making repeated runs for the same day dispatch nothing.
	Dedupe bool
}

// Engine runs daily scans.
type Engine struct {
	store      Store
	dispatcher Dispatcher
	cfg        EngineConfig
	logger     *slog.Logger
}

// NewEngine creates a scan engine.
func NewEngine(logger *slog.Logger, store Store, dispatcher Dispatcher, cfg EngineConfig) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.LeapPolicy == "" {
		cfg.LeapPolicy = birthday.LeapFeb28
	}
	if cfg.MaxParallelGroups <= 0 {
		cfg.MaxParallelGroups = DefaultMaxParallelGroups
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger.With("component", "scan_engine"),
	}
}

// Run scans all groups for today and returns the dispatched actions ordered by
// group, member and transition. Only a failure to read the group registry is
// returned; every other failure is logged and confined to its group, member or action.
func (e *Engine) Run(ctx context.Context, today birthday.Date) ([]Action, error) {
	startTime := time.Now()
	log := e.logger.With("date", today.String())

	groups, err := e.store.ListGroups(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read group registry, aborting scan", "error", err)
		return nil, fmt.Errorf("failed to read group registry: %w", err)
	}
	log.InfoContext(ctx, "Starting birthday scan", "groups", len(groups))

	var (
		mu         sync.Mutex
		dispatched []Action
		g          errgroup.Group
	)
	g.SetLimit(e.cfg.MaxParallelGroups)

	for _, groupID := range groups {
		g.Go(func() error {
			actions := e.scanGroup(ctx, log.With("group_id", groupID), today, groupID)
			mu.Lock()
			dispatched = append(dispatched, actions...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // scanGroup never fails

	sort.SliceStable(dispatched, func(i, j int) bool {
		a, b := dispatched[i], dispatched[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.MemberID != b.MemberID {
			return a.MemberID < b.MemberID
		}
		return a.Kind < b.Kind
	})

	log.InfoContext(ctx, "Birthday scan finished",
		"groups", len(groups),
		"actions", len(dispatched),
		"duration", time.Since(startTime))
	return dispatched, nil
}

func (e *Engine) scanGroup(ctx context.Context, log *slog.Logger, today birthday.Date, groupID int64) []Action {
	if e.cfg.Dedupe {
		last, ok, err := e.store.LastScanDate(ctx, groupID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "Could not read last scan date, scanning anyway", "error", err)
		case ok && !last.Before(today):
			log.InfoContext(ctx, "Group already scanned for this date, skipping", "last_scan_date", last.String())
			return nil
		}
	}

	members, err := e.store.ListMembers(ctx, groupID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list members, skipping group", "error", err)
		return nil
	}
	log.DebugContext(ctx, "Scanning group", "members", len(members))

	var actions []Action
	for _, m := range members {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "Scan interrupted", "error", ctx.Err())
			return actions
		}

		if m.BirthdayErr != nil {
			log.WarnContext(ctx, "Skipping member with malformed birthday",
				"member_id", m.MemberID, "birthday", m.RawBirthday, "error", m.BirthdayErr)
			continue
		}

		st := birthday.Evaluate(today, m.Birthday, e.cfg.LeapPolicy)
		log.DebugContext(ctx, "Evaluated member",
			"member_id", m.MemberID,
			"next", st.Next.String(),
			"previous", st.Previous.String(),
			"days_to_next", st.DaysToNext,
			"days_since_last", st.DaysSinceLast)

		for _, tr := range st.Transitions() {
			a := Action{
				Kind:        tr,
				GroupID:     groupID,
				MemberID:    m.MemberID,
				DisplayName: m.DisplayName,
				Date:        today,
			}
			if err := e.dispatcher.Execute(ctx, a); err != nil {
				log.WarnContext(ctx, "Action dispatched with errors",
					"member_id", m.MemberID, "action", tr.String(), "error", err)
			}
			actions = append(actions, a)
		}
	}

	if e.cfg.Dedupe {
		if err := e.store.MarkScanned(ctx, groupID, today); err != nil {
			log.ErrorContext(ctx, "Failed to record scan date", "error", err)
		}
	}
	return actions
}
