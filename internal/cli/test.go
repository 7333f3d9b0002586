package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lanspeed/internal/client"
	"lanspeed/internal/config"
)

// TestCommand runs one client test round.
func TestCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "test",
		Aliases: []string{"client", "t"},
		Short:   "Discover a server and run one speed-test round",
		Long: `Waits for a server offer on the discovery port, then runs the configured
number of concurrent TCP and UDP transfers against it and prints per-transfer
results and protocol averages. Run the command again for another round; each
round performs a fresh discovery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := client.Run(ctx, cfg)
			if err != nil && ctx.Err() != nil {
				return nil // interrupted while waiting, clean shutdown
			}
			return err
		},
	}

	cmd.Flags().Int64Var(&cfg.RequestedSize, "size", 1024*1024, "bytes to request per transfer")
	cmd.Flags().IntVar(&cfg.TCPConnections, "tcp", 1, "number of concurrent TCP transfers")
	cmd.Flags().IntVar(&cfg.UDPConnections, "udp", 1, "number of concurrent UDP transfers")
	cmd.Flags().DurationVar(&cfg.SegmentTimeout, "segment-timeout", cfg.SegmentTimeout, "receive timeout that marks a UDP transfer as finished")
	cmd.Flags().DurationVar(&cfg.TransferCap, "transfer-cap", cfg.TransferCap, "wall-clock bound on a single transfer")
	return cmd
}
