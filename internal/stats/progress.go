package stats

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// RoundProgress tracks bytes received across all tasks of one test round.
type RoundProgress struct {
	ReceivedBytes atomic.Int64
	StartTime     time.Time
}

func NewRoundProgress() *RoundProgress {
	return &RoundProgress{StartTime: time.Now()}
}

// Update atomically adds to the round's received byte count.
func (p *RoundProgress) Update(bytes int64) {
	p.ReceivedBytes.Add(bytes)
}

// Reporter periodically logs aggregate round progress while transfers run.
type Reporter struct {
	progress *RoundProgress
	ticker   *time.Ticker
	done     chan struct{}
}

// NewReporter creates a reporter ticking at the given interval.
func NewReporter(progress *RoundProgress, interval time.Duration) *Reporter {
	return &Reporter{
		progress: progress,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
	}
}

// Start begins progress reporting
func (r *Reporter) Start() {
	go r.reportLoop()
}

// Stop stops progress reporting
func (r *Reporter) Stop() {
	r.ticker.Stop()
	close(r.done)
}

func (r *Reporter) reportLoop() {
	var lastReceived int64
	lastUpdate := time.Now()

	for {
		select {
		case <-r.ticker.C:
			now := time.Now()
			received := r.progress.ReceivedBytes.Load()
			interval := now.Sub(lastUpdate).Seconds()
			if interval <= 0 {
				continue
			}

			rate := float64(received-lastReceived) / (1024 * 1024) / interval
			slog.Info("Round progress",
				"received_mb", float64(received)/(1024*1024),
				"rate_mbps", rate,
				"elapsed_seconds", int(now.Sub(r.progress.StartTime).Seconds()))

			lastReceived = received
			lastUpdate = now
		case <-r.done:
			return
		}
	}
}
