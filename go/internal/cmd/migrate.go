package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info().Str("store", cfg.Store).Msg("schema is up to date")
			return nil
		},
	}
}
