package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lanspeed/internal/config"
	"lanspeed/internal/server"
)

// ServeCommand runs the speed-test server until interrupted.
func ServeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server", "s"},
		Short:   "Run the speed-test server",
		Long: `Binds dynamic TCP and UDP transfer ports, broadcasts offers on the
discovery port once per interval, and serves transfer requests until the
process is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := server.Run(ctx, cfg)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&cfg.OfferInterval, "offer-interval", cfg.OfferInterval, "delay between offer broadcasts")
	cmd.Flags().IntVar(&cfg.Redundancy, "redundancy", cfg.Redundancy, "times each UDP segment is sent")
	cmd.Flags().DurationVar(&cfg.SegmentDelay, "segment-delay", cfg.SegmentDelay, "pacing delay between UDP segment sends")
	return cmd
}
