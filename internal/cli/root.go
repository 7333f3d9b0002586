package cli

import (
	"github.com/spf13/cobra"

	"lanspeed/internal/config"
	"lanspeed/internal/logging"
)

// NewRootCommand builds the lanspeed command tree. Precedence for every
// setting is flag > LANSPEED_* environment > package default: env overrides
// are folded in before flag binding, so they become the flag defaults.
func NewRootCommand() *cobra.Command {
	cfg := config.Default()
	cfg.LoadEnv()

	rootCmd := &cobra.Command{
		Use:   "lanspeed",
		Short: "lanspeed measures LAN throughput over concurrent TCP and UDP transfers",
		Long: `lanspeed is a LAN speed tester. A server broadcasts its availability on the
local subnet; clients discover it and measure throughput by running a
configurable number of concurrent TCP and UDP transfers against it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(cfg.LogLevel)
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().IntVar(&cfg.DiscoveryPort, "discovery-port", cfg.DiscoveryPort, "UDP port offers are broadcast on")
	rootCmd.PersistentFlags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "UDP segment size in bytes")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(ServeCommand(cfg))
	rootCmd.AddCommand(TestCommand(cfg))
	return rootCmd
}
