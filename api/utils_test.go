package api

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNextTimestampMonotonic(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})
	prev := nextTimestamp()
	for i := 0; i < 1000; i++ {
		next := nextTimestamp()
		if next <= prev {
			t.Fatalf("timestamp regressed: %d then %d", prev, next)
		}
		prev = next
	}
}

func TestNextTimestampAdvancesPastFutureLast(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})
	base := time.Now().Add(time.Second).UnixNano()
	atomic.StoreInt64(&lastTimestamp, base)
	if got := nextTimestamp(); got != base+1 {
		t.Fatalf("expected %d, got %d", base+1, got)
	}
}
