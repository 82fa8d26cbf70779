package wavemon

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"
	"gonum.org/v1/gonum/stat"

	"github.com/spectools/wavemon/internal/unboundedchan"
)

// DisplayFrame is the JSON message published for live plot clients: the
// trailing window of samples plus summary statistics over that window.
type DisplayFrame struct {
	Times  []float64
	Values []float64
	Points int
	Mean   float64
	StdDev float64
}

// DisplaySink consumes samples pushed by the acquisition loop, keeps a
// bounded trailing window (oldest dropped first), and publishes window
// snapshots over a ZMQ PUB socket on its own timer. The hand-off is
// fire-and-forget: the loop never waits on rendering.
type DisplaySink struct {
	maxPoints int
	interval  time.Duration
	port      int // <= 0 means keep the window but publish nothing
	stop      *StopSignal

	incoming *unboundedchan.UnboundedChannel[Sample]
	pushLock sync.Mutex
	closed   bool

	windowLock sync.Mutex
	window     []Sample

	done chan struct{}
}

// Display policy defaults: trailing window size and redraw cadence.
const (
	DefaultMaxPoints       = 500
	DefaultDisplayInterval = 100 * time.Millisecond
)

// NewDisplaySink starts a sink bound to the given stop signal. Pass port <= 0
// to run headless (window only, no socket).
func NewDisplaySink(stop *StopSignal, port, maxPoints int, interval time.Duration) *DisplaySink {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	if interval <= 0 {
		interval = DefaultDisplayInterval
	}
	ds := &DisplaySink{
		maxPoints: maxPoints,
		interval:  interval,
		port:      port,
		stop:      stop,
		incoming:  unboundedchan.NewUnboundedChannel[Sample](),
		done:      make(chan struct{}),
	}
	go ds.run()
	return ds
}

// Push hands one sample to the sink without blocking on rendering. Samples
// pushed after Close are dropped.
func (ds *DisplaySink) Push(s Sample) {
	ds.pushLock.Lock()
	defer ds.pushLock.Unlock()
	if ds.closed {
		return
	}
	ds.incoming.In() <- s
}

// Close signals shutdown exactly once and stops accepting samples. Further
// calls do nothing. This is the window-close path: it raises the shared
// stop signal so the acquisition loop winds down too.
func (ds *DisplaySink) Close() {
	ds.pushLock.Lock()
	if ds.closed {
		ds.pushLock.Unlock()
		return
	}
	ds.closed = true
	close(ds.incoming.In())
	ds.pushLock.Unlock()
	ds.stop.Set()
}

// Done returns a channel that closes when the publisher goroutine exits.
func (ds *DisplaySink) Done() <-chan struct{} {
	return ds.done
}

// Window returns a copy of the current trailing window.
func (ds *DisplaySink) Window() []Sample {
	ds.windowLock.Lock()
	defer ds.windowLock.Unlock()
	out := make([]Sample, len(ds.window))
	copy(out, ds.window)
	return out
}

func (ds *DisplaySink) run() {
	defer close(ds.done)

	var pub *zmq.Socket
	if ds.port > 0 {
		var err error
		pub, err = zmq.NewSocket(zmq.PUB)
		if err == nil {
			err = pub.Bind(fmt.Sprintf("tcp://*:%d", ds.port))
		}
		if err != nil {
			ProblemLogger.Printf("display sink could not open publisher on port %d: %v", ds.port, err)
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	ticker := time.NewTicker(ds.interval)
	defer ticker.Stop()
	for {
		select {
		case s, ok := <-ds.incoming.Out():
			if !ok {
				ds.publish(pub)
				return
			}
			ds.addToWindow(s)
		case <-ticker.C:
			ds.publish(pub)
		}
	}
}

func (ds *DisplaySink) addToWindow(s Sample) {
	ds.windowLock.Lock()
	ds.window = append(ds.window, s)
	if excess := len(ds.window) - ds.maxPoints; excess > 0 {
		ds.window = ds.window[excess:]
	}
	ds.windowLock.Unlock()
}

// snapshot builds the frame to publish from the current window.
func (ds *DisplaySink) snapshot() DisplayFrame {
	ds.windowLock.Lock()
	defer ds.windowLock.Unlock()
	frame := DisplayFrame{
		Times:  make([]float64, len(ds.window)),
		Values: make([]float64, len(ds.window)),
		Points: len(ds.window),
	}
	for i, s := range ds.window {
		frame.Times[i] = s.Elapsed
		frame.Values[i] = s.Value
	}
	if frame.Points > 0 {
		frame.Mean = stat.Mean(frame.Values, nil)
	}
	if frame.Points > 1 {
		frame.StdDev = stat.StdDev(frame.Values, nil)
	}
	return frame
}

func (ds *DisplaySink) publish(pub *zmq.Socket) {
	if pub == nil {
		return
	}
	frame := ds.snapshot()
	if frame.Points == 0 {
		return
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		ProblemLogger.Printf("display frame marshal: %v", err)
		return
	}
	if _, err := pub.SendMessage("WAVE", payload); err != nil {
		ProblemLogger.Printf("display frame publish: %v", err)
	}
}
