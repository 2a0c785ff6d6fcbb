package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/cropform/internal/database"
	"github.com/jask/cropform/internal/database/repository"
	"github.com/jask/cropform/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lookup API",
		Long: `Migrates and seeds the lookup database, then serves:

  GET /get-states, /get-seasons
  GET /get-districts/{state}
  GET /get-taluks/{state}/{district}
  GET /get-crops/{state}/{season}
  GET /get_crops?state=&season=`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
	}
	srv := server.New(repository.NewLocationRepo(db), repository.NewCropRepo(db), a.logger)
	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	a.logger.Info("lookup server stopped")
	return nil
}

// openDatabase migrates, opens and seeds the lookup database.
func (a *app) openDatabase(ctx context.Context) (*sql.DB, error) {
	path := a.cfg.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(path, a.cfg.Database.Migrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}
	a.logger.Debug("database ready", zap.String("path", path))
	return db, nil
}
