package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/config"
)

// NewSweepCmd runs a single auto-submit pass, for cron-style deployments that
// disable the in-process sweeper.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Force-submit every attempt past its time limit once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			n, err := d.service.CheckAndAutoSubmitExpiredAttempts(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "auto-submitted %d attempt(s)\n", n)
			return err
		},
	}
}
