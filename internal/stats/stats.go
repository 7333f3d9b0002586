package stats

import (
	"sync"
	"time"

	"lanspeed/internal/config"
)

// Protocol identifies which transfer engine produced a result.
type Protocol string

const (
	ProtocolTCP Protocol = "TCP"
	ProtocolUDP Protocol = "UDP"
)

// Result is one finished transfer's record. Results are append-only; nothing
// mutates them after the worker that produced them exits.
type Result struct {
	ID            int
	Protocol      Protocol
	RequestedSize int64
	BytesReceived int64
	Elapsed       time.Duration
	BitsPerSecond float64

	// UDP only
	SegmentsExpected int64
	SegmentsReceived int64
}

// LossRate reports the fraction of expected segments that never arrived.
// Zero for TCP results and for transfers where no segment count was learned.
func (r Result) LossRate() float64 {
	if r.SegmentsExpected == 0 {
		return 0
	}
	return 1 - float64(r.SegmentsReceived)/float64(r.SegmentsExpected)
}

// Failure records a transfer that never produced a result.
type Failure struct {
	ID       int
	Protocol Protocol
	Err      error
}

// Collector gathers results from concurrent transfer tasks. Appends happen
// under a single mutex; there is no ordering requirement among tasks.
type Collector struct {
	mu       sync.Mutex
	results  []Result
	failures []Failure
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *Collector) AddFailure(f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

// Results returns a copy of the collected results.
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Failures returns a copy of the collected failures.
func (c *Collector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Summary holds protocol-level averages. The Has flags distinguish "no
// transfers of this protocol ran" from a genuine zero average.
type Summary struct {
	HasTCP              bool
	HasUDP              bool
	TCPTransfers        int
	UDPTransfers        int
	AvgTCPBitsPerSecond float64
	AvgUDPBitsPerSecond float64
	AvgUDPLossRate      float64
}

// Aggregate computes per-protocol averages over successful transfers only.
func Aggregate(results []Result) Summary {
	var s Summary
	var tcpBps, udpBps, udpLoss float64

	for _, r := range results {
		switch r.Protocol {
		case ProtocolTCP:
			s.TCPTransfers++
			tcpBps += r.BitsPerSecond
		case ProtocolUDP:
			s.UDPTransfers++
			udpBps += r.BitsPerSecond
			udpLoss += r.LossRate()
		}
	}

	if s.TCPTransfers > 0 {
		s.HasTCP = true
		s.AvgTCPBitsPerSecond = tcpBps / float64(s.TCPTransfers)
	}
	if s.UDPTransfers > 0 {
		s.HasUDP = true
		s.AvgUDPBitsPerSecond = udpBps / float64(s.UDPTransfers)
		s.AvgUDPLossRate = udpLoss / float64(s.UDPTransfers)
	}
	return s
}

// BitsPerSecond computes throughput, substituting a fixed epsilon when the
// elapsed time rounds to zero so loopback transfers never divide by zero.
func BitsPerSecond(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		elapsed = config.ThroughputEpsilon
	}
	return float64(bytes) * 8 / elapsed.Seconds()
}
