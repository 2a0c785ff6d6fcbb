package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jask/cropform/internal/database"
)

// MaintenanceService houses destructive operations on the lookup database.
type MaintenanceService struct {
	DB     *sql.DB
	Logger *zap.Logger
}

// lookupTables in delete order; children before parents.
var lookupTables = []string{
	"crop_seasons",
	"seasons",
	"taluks",
	"districts",
	"states",
}

// Reset wipes all lookup data, keeping the schema. With reseed the built-in
// defaults are loaded again.
func (s *MaintenanceService) Reset(ctx context.Context, reseed bool) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range lookupTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")

	if reseed {
		if err := database.SeedDefaults(ctx, s.DB); err != nil {
			return fmt.Errorf("reseed: %w", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("lookup data reset", zap.Bool("reseed", reseed))
	}
	return nil
}
