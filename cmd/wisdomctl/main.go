// Command wisdomctl runs maintenance tasks against the donation database and
// walks a donor through the donation flow from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"wisdom-empire/internal/config"
	"wisdom-empire/internal/logging"
)

var Version = "dev"

type env struct {
	configDir string
	cfg       config.Config
	logger    *zap.Logger
}

func main() {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:           "wisdomctl",
		Short:         "Wisdom Empire donation tooling",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel, "console")
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&e.configDir, "config-dir", ".", "directory holding config.env")

	rootCmd.AddCommand(migrateCmd(e))
	rootCmd.AddCommand(tiersCmd())
	rootCmd.AddCommand(sweepCmd(e))
	rootCmd.AddCommand(adminCmd(e))
	rootCmd.AddCommand(donateCmd(e))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// openDB connects with DATABASE_URL; only the database commands need it.
func (e *env) openDB() (*sqlx.DB, error) {
	if e.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := sqlx.Connect("pgx", e.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
