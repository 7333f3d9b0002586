package transfer

import (
	"context"
	"log/slog"
	"sync"

	"lanspeed/internal/config"
	"lanspeed/internal/discovery"
	"lanspeed/internal/stats"

	"github.com/google/uuid"
)

// RunRound fans out the configured number of concurrent TCP and UDP
// transfers against one discovered endpoint and joins them all. Tasks get
// sequential ids per protocol. A failing task is logged and recorded as a
// failure; it never disturbs its siblings, and the round always completes.
func RunRound(ctx context.Context, endpoint discovery.Endpoint,
	progress *stats.RoundProgress, cfg *config.Config) *stats.Collector {

	collector := stats.NewCollector()
	roundID := uuid.NewString()

	slog.Info("Starting test round",
		"round_id", roundID,
		"server", endpoint.String(),
		"size", cfg.RequestedSize,
		"tcp_connections", cfg.TCPConnections,
		"udp_connections", cfg.UDPConnections)

	var wg sync.WaitGroup

	for i := 1; i <= cfg.TCPConnections; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			result, err := RunTCP(ctx, endpoint, id, cfg.RequestedSize, progress, cfg)
			if err != nil {
				slog.Error("TCP transfer failed", "round_id", roundID, "id", id, "error", err)
				collector.AddFailure(stats.Failure{ID: id, Protocol: stats.ProtocolTCP, Err: err})
				return
			}
			collector.Add(result)
		}(i)
	}

	for i := 1; i <= cfg.UDPConnections; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			result, err := RunUDP(ctx, endpoint, id, cfg.RequestedSize, progress, cfg)
			if err != nil {
				slog.Error("UDP transfer failed", "round_id", roundID, "id", id, "error", err)
				collector.AddFailure(stats.Failure{ID: id, Protocol: stats.ProtocolUDP, Err: err})
				return
			}
			collector.Add(result)
		}(i)
	}

	wg.Wait()

	slog.Info("Test round complete",
		"round_id", roundID,
		"succeeded", len(collector.Results()),
		"failed", len(collector.Failures()))
	return collector
}
