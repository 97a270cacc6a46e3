package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask compacts the birthday database. It checks the
// connection first so a broken database is reported as such rather than as a
// failed VACUUM.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", SQLMaintenanceTask)

	return func(ctx context.Context) error {
		if err := deps.Store.Ping(ctx); err != nil {
			log.ErrorContext(ctx, "Birthday database unreachable, skipping maintenance", "error", err)
			return fmt.Errorf("database unreachable: %w", err)
		}

		started := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		groups, err := deps.Store.ListGroups(ctx)
		if err != nil {
			log.WarnContext(ctx, "Maintenance done but group count unavailable", "error", err)
			return nil
		}
		log.InfoContext(ctx, "Birthday database maintained",
			"registered_groups", len(groups),
			"duration", time.Since(started))
		return nil
	}
}
