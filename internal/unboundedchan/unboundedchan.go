// Package unboundedchan supplies an unbounded single-producer queue with
// channel endpoints. The acquisition loop sends into it fire-and-forget;
// the display sink drains it on its own schedule. No backpressure exists:
// if the consumer stalls, the queue grows.
package unboundedchan

// UnboundedChannel represents an unbounded queue, but data are entered and
// removed via channels. Beware! You almost certainly want T to be a small
// value type; use pointers for large objects.
type UnboundedChannel[T any] struct {
	in    chan T
	out   chan T
	queue []T
}

// NewUnboundedChannel creates and initializes an UnboundedChannel and starts
// its relay goroutine.
func NewUnboundedChannel[T any]() *UnboundedChannel[T] {
	uc := &UnboundedChannel[T]{
		in:    make(chan T),
		out:   make(chan T),
		queue: make([]T, 0),
	}
	go uc.run()
	return uc
}

// In returns the input channel. Closing it drains the queue to the output
// channel and then closes it.
func (uc *UnboundedChannel[T]) In() chan<- T {
	return uc.in
}

// Out returns the output channel for receiving data.
func (uc *UnboundedChannel[T]) Out() <-chan T {
	return uc.out
}

func (uc *UnboundedChannel[T]) run() {
	for {
		if len(uc.queue) == 0 {
			// Queue empty: only new input can make progress.
			val, ok := <-uc.in
			if !ok {
				close(uc.out)
				return
			}
			uc.queue = append(uc.queue, val)
			continue
		}
		select {
		case uc.out <- uc.queue[0]:
			uc.queue = uc.queue[1:]
		case val, ok := <-uc.in:
			if !ok {
				// Input closed: deliver what remains, then close the output.
				for _, item := range uc.queue {
					uc.out <- item
				}
				close(uc.out)
				return
			}
			uc.queue = append(uc.queue, val)
		}
	}
}
