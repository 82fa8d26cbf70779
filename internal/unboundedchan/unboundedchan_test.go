package unboundedchan

import (
	"testing"
)

func TestUnboundedChannel(t *testing.T) {
	unboundedQueue := NewUnboundedChannel[int]()

	// Send all integers [0, 19] without a consumer running yet; none of the
	// sends may block.
	max := 20
	go func() {
		ch := unboundedQueue.In()
		for i := range max {
			ch <- i
		}
		close(ch)
	}()

	// Drain and check both order and completeness.
	next := 0
	for d := range unboundedQueue.Out() {
		if d != next {
			t.Errorf("received %d, want %d (FIFO order violated)", d, next)
		}
		next++
	}
	if next != max {
		t.Errorf("received %d items, want %d", next, max)
	}
}

func TestUnboundedChannelPairs(t *testing.T) {
	type pair struct{ t, v float64 }
	uc := NewUnboundedChannel[pair]()
	go func() {
		for i := range 5 {
			uc.In() <- pair{float64(i) * 0.1, 500.0 + float64(i)}
		}
		close(uc.In())
	}()
	count := 0
	var last pair
	for p := range uc.Out() {
		if count > 0 && p.t <= last.t {
			t.Errorf("pair times out of order: %v after %v", p.t, last.t)
		}
		last = p
		count++
	}
	if count != 5 {
		t.Errorf("received %d pairs, want 5", count)
	}
}
