package client

import (
	"context"
	"sort"
	"time"

	"lanspeed/internal/cli/output"
	"lanspeed/internal/config"
	"lanspeed/internal/discovery"
	"lanspeed/internal/logging"
	"lanspeed/internal/stats"
	"lanspeed/internal/transfer"
)

// Run performs one full client round: discover a server, fan out the
// configured transfers, aggregate and print. Configuration errors are the
// only fatal ones; individual transfer failures are reported per id and the
// round still prints whatever aggregate is computable.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateRound(); err != nil {
		return err
	}

	logging.LogClientConfig(cfg)
	printer := output.NewPrinter()

	endpoint, err := discovery.Listen(ctx, cfg.DiscoveryPort)
	if err != nil {
		return err
	}

	progress := stats.NewRoundProgress()
	reporter := stats.NewReporter(progress, time.Second)
	reporter.Start()
	collector := transfer.RunRound(ctx, endpoint, progress, cfg)
	reporter.Stop()

	results := collector.Results()
	sort.Slice(results, func(i, j int) bool {
		if results[i].Protocol != results[j].Protocol {
			return results[i].Protocol < results[j].Protocol
		}
		return results[i].ID < results[j].ID
	})

	for _, r := range results {
		printer.Result(r)
	}
	for _, f := range collector.Failures() {
		printer.Failure(f)
	}

	printer.Summary(stats.Aggregate(results))
	return nil
}
