package wavemon

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Sample is one polled measurement: seconds since the loop started, and the
// value the instrument reported. Immutable once created.
type Sample struct {
	Elapsed float64
	Value   float64
}

// StopSignal is the monotonic run/stop flag shared by the acquisition loop
// and the display sink. Set only ever transitions it false→true; setting it
// again from either side is harmless.
type StopSignal struct {
	flag atomic.Bool
	ch   chan struct{}
	once sync.Once
}

// NewStopSignal returns an unset stop signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Set raises the signal. Idempotent and safe from any goroutine.
func (s *StopSignal) Set() {
	s.once.Do(func() {
		s.flag.Store(true)
		close(s.ch)
	})
}

// IsSet reports whether the signal has been raised.
func (s *StopSignal) IsSet() bool {
	return s.flag.Load()
}

// Done returns a channel that closes when the signal is raised.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}

// ReadoutConfig collects the policy constants for one acquisition run.
type ReadoutConfig struct {
	Interval time.Duration // nominal tick cadence; spacing is best-effort
	Property string        // measured property queried each tick
}

// DefaultReadoutConfig returns the nominal 100 ms polling policy.
func DefaultReadoutConfig() ReadoutConfig {
	return ReadoutConfig{
		Interval: 100 * time.Millisecond,
		Property: DefaultSettings().Property,
	}
}

// Readout runs the acquisition loop: one instrument, one recording, at most
// one display sink. Only one Readout ever runs per process.
type Readout struct {
	instrument Instrument
	recording  *Recording
	sink       *DisplaySink // may be nil when graphing is off
	stop       *StopSignal
	config     ReadoutConfig

	runDone sync.WaitGroup
	runErr  error

	statusLock  sync.Mutex
	ticks       int
	lastElapsed float64
	lastValue   float64
}

// NewReadout wires an instrument, a recording and an optional display sink
// to one stop signal.
func NewReadout(inst Instrument, rec *Recording, sink *DisplaySink, stop *StopSignal, cfg ReadoutConfig) *Readout {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReadoutConfig().Interval
	}
	if cfg.Property == "" {
		cfg.Property = DefaultReadoutConfig().Property
	}
	return &Readout{
		instrument: inst,
		recording:  rec,
		sink:       sink,
		stop:       stop,
		config:     cfg,
	}
}

// Start launches the acquisition loop in its own goroutine.
func (ro *Readout) Start() {
	ro.runDone.Add(1)
	go func() {
		defer ro.runDone.Done()
		ro.runErr = ro.run()
	}()
}

// Wait blocks until the loop has exited, the last row is flushed and the
// recording is closed. It returns the error that ended the run, if any.
func (ro *Readout) Wait() error {
	ro.runDone.Wait()
	return ro.runErr
}

// Stop raises the stop signal; the loop performs at most one more tick.
func (ro *Readout) Stop() {
	ro.stop.Set()
}

// run is the acquisition loop. Per tick: elapsed time from the monotonic
// clock, one instrument query, one flushed CSV row, a fire-and-forget push
// to the display sink, then the cadence sleep. The stop signal is observed
// at tick boundaries only, so an in-flight query is never interrupted.
func (ro *Readout) run() error {
	defer ro.recording.Close()
	tstart := time.Now()

	for !ro.stop.IsSet() {
		elapsed := time.Since(tstart).Seconds()
		value, err := ro.instrument.Query(ro.config.Property)
		if err != nil {
			ro.stop.Set()
			return fmt.Errorf("query %s: %w", ro.config.Property, err)
		}

		s := Sample{Elapsed: elapsed, Value: value}
		if err := ro.recording.Append(s); err != nil {
			ro.stop.Set()
			return err
		}
		if ro.sink != nil {
			ro.sink.Push(s)
		}
		ro.noteTick(s)

		select {
		case <-ro.stop.Done():
		case <-time.After(ro.config.Interval):
		}
	}
	return nil
}

func (ro *Readout) noteTick(s Sample) {
	ro.statusLock.Lock()
	ro.ticks++
	ro.lastElapsed = s.Elapsed
	ro.lastValue = s.Value
	ro.statusLock.Unlock()
}

// Progress reports the tick count and the most recent sample.
func (ro *Readout) Progress() (ticks int, last Sample) {
	ro.statusLock.Lock()
	defer ro.statusLock.Unlock()
	return ro.ticks, Sample{Elapsed: ro.lastElapsed, Value: ro.lastValue}
}
