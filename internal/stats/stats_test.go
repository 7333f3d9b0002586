package stats

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBitsPerSecond(t *testing.T) {
	assert.InDelta(t, 8000, BitsPerSecond(1000, time.Second), 0.001)

	// Zero elapsed substitutes the epsilon instead of dividing by zero
	bps := BitsPerSecond(1000, 0)
	assert.Greater(t, bps, 0.0)
	assert.InDelta(t, 8_000_000, bps, 0.001)
}

func TestResultLossRate(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   float64
	}{
		{name: "no loss", result: Result{SegmentsExpected: 5, SegmentsReceived: 5}, want: 0},
		{name: "half lost", result: Result{SegmentsExpected: 10, SegmentsReceived: 5}, want: 0.5},
		{name: "nothing received", result: Result{SegmentsExpected: 10, SegmentsReceived: 0}, want: 1},
		{name: "tcp result has no segments", result: Result{Protocol: ProtocolTCP}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.result.LossRate(), 1e-9)
		})
	}
}

func TestAggregate(t *testing.T) {
	results := []Result{
		{Protocol: ProtocolTCP, BitsPerSecond: 100},
		{Protocol: ProtocolTCP, BitsPerSecond: 300},
		{Protocol: ProtocolUDP, BitsPerSecond: 50, SegmentsExpected: 10, SegmentsReceived: 5},
		{Protocol: ProtocolUDP, BitsPerSecond: 150, SegmentsExpected: 10, SegmentsReceived: 10},
	}

	summary := Aggregate(results)

	assert.True(t, summary.HasTCP)
	assert.True(t, summary.HasUDP)
	assert.Equal(t, 2, summary.TCPTransfers)
	assert.Equal(t, 2, summary.UDPTransfers)
	assert.InDelta(t, 200, summary.AvgTCPBitsPerSecond, 1e-9)
	assert.InDelta(t, 100, summary.AvgUDPBitsPerSecond, 1e-9)
	assert.InDelta(t, 0.25, summary.AvgUDPLossRate, 1e-9)
}

func TestAggregateEmptyProtocolOmitted(t *testing.T) {
	summary := Aggregate([]Result{{Protocol: ProtocolTCP, BitsPerSecond: 100}})

	assert.True(t, summary.HasTCP)
	assert.False(t, summary.HasUDP, "no UDP transfers must leave the UDP average absent, not zero")

	summary = Aggregate(nil)
	assert.False(t, summary.HasTCP)
	assert.False(t, summary.HasUDP)
}

func TestCollectorConcurrentAppend(t *testing.T) {
	collector := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if id%10 == 0 {
				collector.AddFailure(Failure{ID: id, Protocol: ProtocolTCP, Err: errors.New("refused")})
				return
			}
			collector.Add(Result{ID: id, Protocol: ProtocolTCP})
		}(i)
	}
	wg.Wait()

	assert.Len(t, collector.Results(), 45)
	assert.Len(t, collector.Failures(), 5)
}

func TestCollectorResultsReturnsCopy(t *testing.T) {
	collector := NewCollector()
	collector.Add(Result{ID: 1})

	got := collector.Results()
	got[0].ID = 99

	assert.Equal(t, 1, collector.Results()[0].ID)
}
