package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/cropform/internal/database/repository"
	"github.com/jask/cropform/internal/service"
)

func (a *app) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load lookup data from CSV",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "crops <file.csv>",
			Short: "Import a crop yield dataset (needs Crop, Season and State columns)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runImport(cmd.Context(), cmd.OutOrStdout(), args[0], (*service.IngestService).ImportCropYield)
			},
		},
		&cobra.Command{
			Use:   "locations <file.csv>",
			Short: "Import state,district[,taluk] rows",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runImport(cmd.Context(), cmd.OutOrStdout(), args[0], (*service.IngestService).ImportLocations)
			},
		},
	)
	return cmd
}

type importFunc func(*service.IngestService, context.Context, io.Reader) (service.IngestResult, error)

func (a *app) runImport(ctx context.Context, out io.Writer, path string, run importFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	db, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := &service.IngestService{
		Locations: repository.NewLocationRepo(db),
		Crops:     repository.NewCropRepo(db),
		Logger:    a.logger,
	}
	res, err := run(svc, ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d, skipped %d\n", res.Imported, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %v\n", e)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d rows failed", len(res.Errors))
	}
	return nil
}

func (a *app) resetCmd() *cobra.Command {
	var reseed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all lookup data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			m := &service.MaintenanceService{DB: db, Logger: a.logger}
			if err := m.Reset(cmd.Context(), reseed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "lookup data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reseed, "reseed", false, "Load the built-in states, seasons and sample locations afterwards")
	return cmd
}
