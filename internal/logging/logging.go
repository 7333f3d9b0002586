package logging

import (
	"log/slog"
	"os"
	"strings"

	"lanspeed/internal/config"
)

// SetupLogger initializes structured logging on stderr at the configured
// level so transfer output on stdout stays clean.
func SetupLogger(level string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: false,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogServerConfig logs the configuration a server starts with
func LogServerConfig(cfg *config.Config) {
	slog.Info("Server configuration",
		"discovery_port", cfg.DiscoveryPort,
		"chunk_size", cfg.ChunkSize,
		"offer_interval", cfg.OfferInterval,
		"redundancy", cfg.Redundancy,
		"segment_delay", cfg.SegmentDelay)
}

// LogClientConfig logs the parameters of a test round
func LogClientConfig(cfg *config.Config) {
	slog.Info("Client configuration",
		"discovery_port", cfg.DiscoveryPort,
		"requested_size", cfg.RequestedSize,
		"tcp_connections", cfg.TCPConnections,
		"udp_connections", cfg.UDPConnections,
		"segment_timeout", cfg.SegmentTimeout,
		"transfer_cap", cfg.TransferCap)
}
