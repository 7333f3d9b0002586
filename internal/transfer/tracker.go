package transfer

import (
	"github.com/emirpasic/gods/sets/hashset"
)

// SegmentTracker records which UDP segments of one transfer have arrived.
// Duplicate indices are expected (the server resends each segment) and must
// not inflate the received count. Not safe for concurrent use; each transfer
// task owns its tracker exclusively.
type SegmentTracker struct {
	received *hashset.Set
	total    uint64
}

func NewSegmentTracker() *SegmentTracker {
	return &SegmentTracker{received: hashset.New()}
}

// Record notes a received segment and returns true if the index was not seen
// before. The declared total is taken from every Payload header; when headers
// disagree the most recent value wins.
func (t *SegmentTracker) Record(totalSegments, index uint64) bool {
	t.total = totalSegments
	if t.received.Contains(index) {
		return false
	}
	t.received.Add(index)
	return true
}

// UniqueCount reports how many distinct segments arrived.
func (t *SegmentTracker) UniqueCount() int64 {
	return int64(t.received.Size())
}

// ExpectedTotal reports the declared segment count, zero until the first
// valid Payload is recorded.
func (t *SegmentTracker) ExpectedTotal() int64 {
	return int64(t.total)
}

// Complete reports whether every declared segment has been seen.
func (t *SegmentTracker) Complete() bool {
	return t.total > 0 && uint64(t.received.Size()) >= t.total
}

// TotalSegments computes how many chunks a transfer of the given size splits
// into: ceil(size / chunkSize).
func TotalSegments(size int64, chunkSize int) int64 {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return (size + int64(chunkSize) - 1) / int64(chunkSize)
}
