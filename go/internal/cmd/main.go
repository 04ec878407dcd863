package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg Config

	root := &cobra.Command{
		Use:   "timekeep",
		Short: "Team time tracking service",
		Long: `timekeep tracks team clock sessions and per-ticket timers, closes sessions
that run past the continuous-work cap or across midnight, and builds timesheets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = *loaded
			setupLogging(cfg.LogLevel)
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(&cfg),
		newMigrateCmd(&cfg),
		newExpireCmd(&cfg),
		newTimesheetCmd(&cfg),
	)
	return root
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
