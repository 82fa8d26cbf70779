package wavemon

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// countingInstrument reports a fixed value and counts its queries.
type countingInstrument struct {
	mu      sync.Mutex
	queries int
	value   float64
}

func (ci *countingInstrument) Identify() (string, error)  { return "COUNTING,TEST", nil }
func (ci *countingInstrument) Configure(s Settings) error { return nil }
func (ci *countingInstrument) Close() error               { return nil }

func (ci *countingInstrument) Query(property string) (float64, error) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.queries++
	return ci.value, nil
}

func (ci *countingInstrument) count() int {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.queries
}

func TestStopSignal(t *testing.T) {
	stop := NewStopSignal()
	if stop.IsSet() {
		t.Error("StopSignal.IsSet() says true before Set")
	}
	select {
	case <-stop.Done():
		t.Error("StopSignal.Done() closed before Set")
	default:
	}

	// Setting from many goroutines at once must be safe and idempotent.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stop.Set()
		}()
	}
	wg.Wait()
	if !stop.IsSet() {
		t.Error("StopSignal.IsSet() says false after Set")
	}
	select {
	case <-stop.Done():
	default:
		t.Error("StopSignal.Done() not closed after Set")
	}
	stop.Set() // never clears, never panics
	if !stop.IsSet() {
		t.Error("StopSignal cleared by a second Set")
	}
}

// TestSyntheticEndToEnd runs the whole readout in synthetic mode with no
// display for about half a second and checks the file that results.
func TestSyntheticEndToEnd(t *testing.T) {
	rec, err := NewRecording(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewRecording: %v", err)
	}
	si := NewSyntheticInstrument(500.0, 600.0)
	stop := NewStopSignal()
	ro := NewReadout(si, rec, nil, stop, ReadoutConfig{Interval: 100 * time.Millisecond, Property: "WAVelength"})

	ro.Start()
	time.Sleep(450 * time.Millisecond)
	ro.Stop()
	if err := ro.Wait(); err != nil {
		t.Fatalf("readout ended with error: %v", err)
	}

	f, err := os.Open(rec.CSVFilename)
	if err != nil {
		t.Fatalf("could not open output file: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("output file is empty")
	}
	if scanner.Text() != CSVHeader {
		t.Errorf("header row is %q, want %q", scanner.Text(), CSVHeader)
	}

	nrows := 0
	lastElapsed := -1.0
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			t.Fatalf("row %q has %d fields, want 2", line, len(fields))
		}
		elapsed, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || elapsed < 0 {
			t.Errorf("row %q: bad elapsed time", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			t.Errorf("row %q: bad value", line)
		}
		if value < 500.0 || value >= 600.0 {
			t.Errorf("row %q: value %v outside [500, 600)", line, value)
		}
		if elapsed <= lastElapsed {
			t.Errorf("row %q: elapsed %v not strictly increasing after %v", line, elapsed, lastElapsed)
		}
		lastElapsed = elapsed
		nrows++
	}
	if nrows < 4 || nrows > 6 {
		t.Errorf("0.5 s at 100 ms cadence wrote %d rows, want 4 to 6", nrows)
	}
	if rec.Rows() != nrows {
		t.Errorf("Recording.Rows() = %d, file has %d rows", rec.Rows(), nrows)
	}
}

// TestStopBoundedLatency checks that once the stop signal is set, the loop
// performs at most one more tick before exiting.
func TestStopBoundedLatency(t *testing.T) {
	rec, err := NewRecording(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	ci := &countingInstrument{value: 550.0}
	stop := NewStopSignal()
	ro := NewReadout(ci, rec, nil, stop, ReadoutConfig{Interval: time.Millisecond})

	ro.Start()
	deadline := time.Now().Add(2 * time.Second)
	for ci.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ci.count() < 3 {
		t.Fatal("loop made no progress")
	}
	stop.Set()
	atStop := ci.count()
	if err := ro.Wait(); err != nil {
		t.Fatalf("readout ended with error: %v", err)
	}
	after := ci.count()
	if after > atStop+1 {
		t.Errorf("loop ran %d more ticks after stop, want at most 1", after-atStop)
	}
}

// erroringInstrument answers one query, then returns garbage errors.
type erroringInstrument struct {
	countingInstrument
}

func (ei *erroringInstrument) Query(property string) (float64, error) {
	ei.mu.Lock()
	defer ei.mu.Unlock()
	ei.queries++
	if ei.queries > 1 {
		return 0, strconv.ErrSyntax
	}
	return 550.0, nil
}

func TestQueryErrorEndsRun(t *testing.T) {
	rec, err := NewRecording(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	stop := NewStopSignal()
	ro := NewReadout(&erroringInstrument{}, rec, nil, stop, ReadoutConfig{Interval: time.Millisecond})
	ro.Start()
	if err := ro.Wait(); err == nil {
		t.Error("readout with a failing query returned nil error")
	}
	if !stop.IsSet() {
		t.Error("stop signal not set after a fatal query error")
	}
	if rec.Active {
		t.Error("recording still active after the run ended")
	}
	if rec.Rows() != 1 {
		t.Errorf("recording has %d rows, want the 1 written before the failure", rec.Rows())
	}
}

func TestSyntheticRange(t *testing.T) {
	si := NewSyntheticInstrument(500.0, 600.0)
	for range 1000 {
		v, err := si.Query("WAVelength")
		if err != nil {
			t.Fatalf("synthetic Query returned %v", err)
		}
		if v < 500.0 || v >= 600.0 {
			t.Fatalf("synthetic value %v outside [500, 600)", v)
		}
	}
	if err := si.Configure(DefaultSettings()); err != nil {
		t.Errorf("synthetic Configure returned %v", err)
	}
	if err := si.Close(); err != nil {
		t.Errorf("synthetic Close returned %v", err)
	}
	idn, err := si.Identify()
	if err != nil || idn == "" {
		t.Errorf("synthetic Identify returned (%q, %v)", idn, err)
	}
}
