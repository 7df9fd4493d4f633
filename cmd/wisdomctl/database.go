package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wisdom-empire/internal/ledger"
	"wisdom-empire/internal/migrations"
	"wisdom-empire/internal/tiers"
	"wisdom-empire/internal/users"
)

func migrateCmd(e *env) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Run(cmd.Context(), db); err != nil {
				return err
			}
			e.logger.Info("schema up to date")

			if seed {
				n, err := migrations.Seed(cmd.Context(), db)
				if err != nil {
					return err
				}
				e.logger.Info("seeded content", zap.Int("items", n))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the sample content when the content table is empty")
	return cmd
}

func tiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Print the donation tier catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("TIER", "AMOUNT", "DESCRIPTION")
			for _, tier := range tiers.All() {
				t.Row(tier.Name, tier.Amount, tier.Description)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}
}

func sweepCmd(e *env) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail donations left pending longer than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				olderThan = e.cfg.StalePendingAfter
			}
			if olderThan <= 0 {
				return fmt.Errorf("set --older-than or STALE_PENDING_AFTER")
			}

			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			s := &ledger.Sweeper{Ledger: ledger.New(db), MaxAge: olderThan, Logger: e.logger}
			n, err := s.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pending donation(s) marked failed\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age after which a pending donation counts as abandoned")
	return cmd
}

func adminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account for the reconciliation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := users.NewStore(db).Create(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			e.logger.Info("admin created", zap.String("id", user.ID), zap.String("email", user.Email))
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "admin email")
	create.Flags().StringVar(&password, "password", "", "admin password (at least 8 characters)")
	create.MarkFlagRequired("email")
	create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
