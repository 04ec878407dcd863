package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newExpireCmd(cfg *Config) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Close sessions past the cap or midnight",
		Long: `Runs the authoritative expiry pass. With --once it runs a single pass and
prints what it did, which suits cron; otherwise it loops like the server does.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := setupServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer services.Close()

			if !once {
				return services.Monitor.Run(ctx)
			}

			res, err := services.Monitor.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evaluated %d open sessions: %d closed, %d failed\n",
				res.Evaluated, res.Stopped, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d sessions could not be closed", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}
