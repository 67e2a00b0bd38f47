package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func SweepSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-sessions",
		Short: "Expire PENDING payment sessions past their deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := connectDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			container := buildContainer(cfg, db)
			n, err := container.PaymentService.SweepExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep failed after expiring %d sessions: %w", n, err)
			}
			fmt.Printf("Expired %d payment sessions.\n", n)
			return nil
		},
	}
}
