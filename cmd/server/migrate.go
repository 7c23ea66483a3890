package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/db"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/migrations"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/seed"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			return a.migrate(cmd.Context(), status)
		},
	}
	cmd.Flags().Bool("status", false, "print the current schema version without migrating")
	return cmd
}

func (a *app) migrate(ctx context.Context, statusOnly bool) error {
	database, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if !statusOnly {
		if err := migrations.Up(ctx, database); err != nil {
			return err
		}
	}

	version, err := migrations.Version(ctx, database)
	if err != nil {
		return err
	}
	a.logger.Info("database schema", zap.String("db_path", a.cfg.DBPath), zap.Int64("version", version))
	return nil
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the pricing catalogue and the admin user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := migrations.Up(ctx, database); err != nil {
				return err
			}
			stats, err := seed.Run(ctx, database, seed.Config{
				AdminEmail:    a.cfg.AdminEmail,
				AdminPassword: a.cfg.AdminPassword,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed complete: %d rows inserted\n", stats.Inserts)
			return nil
		},
	}
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	database, err := db.Open(ctx, a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.DBPath, err)
	}
	return database, nil
}
