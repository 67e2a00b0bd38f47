package main

import (
	"fmt"

	"github.com/prohmpiriya/hotel-booking-engine/migrations"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateUpCmd(), migrateDownCmd(), migrateStatusCmd())
	return cmd
}

func openMigrator(cmd *cobra.Command) (*database.Migrator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	return database.NewMigrator(cfg.Database.DSN(), migrations.FS)
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			results, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No pending migrations.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("Applied %d %s\n", r.Version, r.Source)
			}
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			result, err := m.Down(cmd.Context())
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Println("Nothing to roll back.")
				return nil
			}
			fmt.Printf("Rolled back %d %s\n", result.Version, result.Source)
			return nil
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%-10s  %-30s  %-8s\n", "Version", "Source", "State")
			for _, s := range statuses {
				fmt.Printf("%-10d  %-30s  %-8s\n", s.Version, s.Source, s.State)
			}
			return nil
		},
	}
}
