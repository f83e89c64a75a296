package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/omnicore/omniaudit/internal/infrastructure/logger"
	"github.com/omnicore/omniaudit/pkg/config"
	"github.com/omnicore/omniaudit/pkg/database"
)

func main() {
	if err := newMigrateCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:           "migrate [up|down]",
		Short:         "Apply or roll back the embedded database migrations",
		Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     []string{"up", "down"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if dsn == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dsn = cfg.DatabaseURL
				level = cfg.LogLevel
			}
			log := logger.NewLogger(level)

			if err := database.Migrate(dsn, args[0]); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			log.Info("migrations applied", slog.String("direction", args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "database URL (defaults to DATABASE_URL)")
	return cmd
}
