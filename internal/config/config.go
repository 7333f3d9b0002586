package config

import (
	"os"
	"strconv"
	"time"

	"lanspeed/internal/errors"

	"github.com/joho/godotenv"
)

// Constants for default values
const (
	// DiscoveryPort is the well-known UDP port offers are broadcast on.
	DiscoveryPort = 13117

	DefaultChunkSize     = 1024 // bytes per UDP segment
	DefaultOfferInterval = 1 * time.Second
	DefaultRedundancy    = 3 // times each UDP segment is sent
	DefaultSegmentDelay  = 0 * time.Millisecond

	DefaultSegmentTimeout = 1 * time.Second  // per-receive timeout, doubles as end-of-transfer marker
	DefaultTransferCap    = 30 * time.Second // wall-clock bound on a single UDP transfer

	DefaultDialTimeout = 5 * time.Second
	DefaultLogLevel    = "info"

	// TCPWriteSize bounds individual writes on the TCP streaming path
	TCPWriteSize = 32 * 1024

	// MaxDatagramSize bounds receive buffers on every UDP path
	MaxDatagramSize = 64 * 1024

	// ThroughputEpsilon substitutes for a zero elapsed time when computing
	// bits per second. Deliberate approximation, not a precision guarantee.
	ThroughputEpsilon = time.Millisecond
)

// Config holds all configuration parameters for the application
type Config struct {
	// Shared settings
	DiscoveryPort int
	ChunkSize     int
	LogLevel      string

	// Server settings
	OfferInterval time.Duration
	Redundancy    int
	SegmentDelay  time.Duration

	// Client settings
	RequestedSize  int64
	TCPConnections int
	UDPConnections int
	SegmentTimeout time.Duration
	TransferCap    time.Duration
	DialTimeout    time.Duration
}

// Default returns a Config populated with package defaults.
func Default() *Config {
	return &Config{
		DiscoveryPort:  DiscoveryPort,
		ChunkSize:      DefaultChunkSize,
		LogLevel:       DefaultLogLevel,
		OfferInterval:  DefaultOfferInterval,
		Redundancy:     DefaultRedundancy,
		SegmentDelay:   DefaultSegmentDelay,
		SegmentTimeout: DefaultSegmentTimeout,
		TransferCap:    DefaultTransferCap,
		DialTimeout:    DefaultDialTimeout,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DiscoveryPort <= 0 || c.DiscoveryPort > 65535 {
		return errors.NewValidationError("discovery_port", c.DiscoveryPort, "must be a valid port")
	}
	if c.ChunkSize <= 0 {
		return errors.NewValidationError("chunk_size", c.ChunkSize, "must be positive")
	}
	if c.OfferInterval <= 0 {
		return errors.NewValidationError("offer_interval", c.OfferInterval, "must be positive")
	}
	if c.Redundancy <= 0 {
		return errors.NewValidationError("redundancy", c.Redundancy, "must be positive")
	}
	if c.SegmentDelay < 0 {
		return errors.NewValidationError("segment_delay", c.SegmentDelay, "cannot be negative")
	}
	if c.SegmentTimeout <= 0 {
		return errors.NewValidationError("segment_timeout", c.SegmentTimeout, "must be positive")
	}
	if c.TransferCap <= 0 {
		return errors.NewValidationError("transfer_cap", c.TransferCap, "must be positive")
	}
	return nil
}

// ValidateRound checks the parameters of a single test round. Rejected
// parameters fail before any network activity begins.
func (c *Config) ValidateRound() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.RequestedSize <= 0 {
		return errors.NewValidationError("size", c.RequestedSize, "must be positive")
	}
	if c.TCPConnections < 0 {
		return errors.NewValidationError("tcp", c.TCPConnections, "cannot be negative")
	}
	if c.UDPConnections < 0 {
		return errors.NewValidationError("udp", c.UDPConnections, "cannot be negative")
	}
	return nil
}

// LoadEnv applies LANSPEED_* environment overrides on top of the current
// values. A .env file in the working directory is honored if present.
func (c *Config) LoadEnv() {
	_ = godotenv.Load(".env")

	if v, ok := envInt("LANSPEED_DISCOVERY_PORT"); ok {
		c.DiscoveryPort = v
	}
	if v, ok := envInt("LANSPEED_CHUNK_SIZE"); ok {
		c.ChunkSize = v
	}
	if v, ok := envInt("LANSPEED_REDUNDANCY"); ok {
		c.Redundancy = v
	}
	if v, ok := envDuration("LANSPEED_OFFER_INTERVAL"); ok {
		c.OfferInterval = v
	}
	if v, ok := envDuration("LANSPEED_SEGMENT_DELAY"); ok {
		c.SegmentDelay = v
	}
	if v, ok := envDuration("LANSPEED_SEGMENT_TIMEOUT"); ok {
		c.SegmentTimeout = v
	}
	if v, ok := envDuration("LANSPEED_TRANSFER_CAP"); ok {
		c.TransferCap = v
	}
	if v := os.Getenv("LANSPEED_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
