package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/birthdaybot/internal/birthday"
)

// Store defines the persistence operations for birthdays, groups and scan bookkeeping.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RegisterGroupIfAbsent adds the group to the registry. Returns true if it was newly added.
	RegisterGroupIfAbsent(ctx context.Context, groupID int64) (bool, error)

	// ListGroups returns all registered group IDs.
	ListGroups(ctx context.Context) ([]int64, error)

	// UpsertMember creates or replaces the member's record within the group.
	UpsertMember(ctx context.Context, groupID, memberID int64, displayName string, bd birthday.Date) error

	// RemoveMember deletes the member's record. Returns false, nil if there was none.
	RemoveMember(ctx context.Context, groupID, memberID int64) (bool, error)

	// ListMembers returns every member record of the group ordered by member ID.
	ListMembers(ctx context.Context, groupID int64) ([]Member, error)

	// LastScanDate returns the last date the group was scanned, if any.
	LastScanDate(ctx context.Context, groupID int64) (birthday.Date, bool, error)

	// MarkScanned records day as the group's last scan date.
	MarkScanned(ctx context.Context, groupID int64, day birthday.Date) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) RegisterGroupIfAbsent(ctx context.Context, groupID int64) (bool, error) {
	if groupID == 0 {
		return false, fmt.Errorf("group_id cannot be zero")
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (group_id, created_at) VALUES (?, ?) ON CONFLICT (group_id) DO NOTHING`,
		groupID, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error registering group", "group_id", groupID, "error", err)
		return false, fmt.Errorf("failed to register group %d: %w", groupID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when registering group",
			"group_id", groupID, "error", err)
		return false, nil
	}
	if affected > 0 {
		s.logger.InfoContext(ctx, "Registered new group", "group_id", groupID)
	}
	return affected > 0, nil
}

func (s *sqlxStore) ListGroups(ctx context.Context) ([]int64, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var groups []int64
	err := s.db.SelectContext(ctx, &groups, `SELECT group_id FROM groups ORDER BY group_id`)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while listing groups", "error", err)
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error listing groups", "error", err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed groups", "count", len(groups))
	return groups, nil
}

func (s *sqlxStore) UpsertMember(ctx context.Context, groupID, memberID int64, displayName string, bd birthday.Date) error {
	if groupID == 0 {
		return fmt.Errorf("group_id cannot be zero")
	}
	if memberID == 0 {
		return fmt.Errorf("member_id cannot be zero")
	}
	if bd.IsZero() {
		return fmt.Errorf("birthday cannot be empty")
	}

	now := time.Now().UTC()
	row := memberRow{
		GroupID:     groupID,
		MemberID:    memberID,
		DisplayName: displayName,
		Birthday:    bd.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO members (group_id, member_id, display_name, birthday, created_at, updated_at)
		VALUES (:group_id, :member_id, :display_name, :birthday, :created_at, :updated_at)
		ON CONFLICT (group_id, member_id) DO UPDATE SET
			display_name = excluded.display_name,
			birthday = excluded.birthday,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving member birthday",
			"group_id", groupID, "member_id", memberID, "error", err)
		return fmt.Errorf("failed to save birthday (group %d, member %d): %w", groupID, memberID, err)
	}

	s.logger.DebugContext(ctx, "Member birthday saved",
		"group_id", groupID, "member_id", memberID, "birthday", row.Birthday)
	return nil
}

func (s *sqlxStore) RemoveMember(ctx context.Context, groupID, memberID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM members WHERE group_id = ? AND member_id = ?`, groupID, memberID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing member birthday",
			"group_id", groupID, "member_id", memberID, "error", err)
		return false, fmt.Errorf("failed to remove birthday (group %d, member %d): %w", groupID, memberID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	s.logger.DebugContext(ctx, "Member birthday removal",
		"group_id", groupID, "member_id", memberID, "removed", affected > 0)
	return affected > 0, nil
}

func (s *sqlxStore) ListMembers(ctx context.Context, groupID int64) ([]Member, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []memberRow
	query := `
		SELECT group_id, member_id, display_name, birthday, created_at, updated_at
		FROM members
		WHERE group_id = ?
		ORDER BY member_id
	`
	err := s.db.SelectContext(ctx, &rows, query, groupID)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while listing members",
			"group_id", groupID, "error", err)
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error listing members", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to list members of group %d: %w", groupID, err)
	}

	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.toMember())
	}

	s.logger.DebugContext(ctx, "Listed members", "group_id", groupID, "count", len(members))
	return members, nil
}

func (s *sqlxStore) LastScanDate(ctx context.Context, groupID int64) (birthday.Date, bool, error) {
	var row scanRunRow
	err := s.db.GetContext(ctx, &row,
		`SELECT group_id, last_scan_date, updated_at FROM scan_runs WHERE group_id = ?`, groupID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return birthday.Date{}, false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error reading last scan date", "group_id", groupID, "error", err)
		return birthday.Date{}, false, fmt.Errorf("failed to read last scan date for group %d: %w", groupID, err)
	}

	day, err := birthday.ParseISO(row.LastScanDate)
	if err != nil {
		return birthday.Date{}, false, fmt.Errorf("corrupt last scan date for group %d: %w", groupID, err)
	}
	return day, true, nil
}

func (s *sqlxStore) MarkScanned(ctx context.Context, groupID int64, day birthday.Date) error {
	row := scanRunRow{
		GroupID:      groupID,
		LastScanDate: day.String(),
		UpdatedAt:    time.Now().UTC(),
	}
	query := `
		INSERT INTO scan_runs (group_id, last_scan_date, updated_at)
		VALUES (:group_id, :last_scan_date, :updated_at)
		ON CONFLICT (group_id) DO UPDATE SET
			last_scan_date = excluded.last_scan_date,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error recording scan date",
			"group_id", groupID, "date", row.LastScanDate, "error", err)
		return fmt.Errorf("failed to record scan date for group %d: %w", groupID, err)
	}
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
