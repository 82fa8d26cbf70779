package runlog

import (
	"testing"
	"time"
)

func TestDummyConnectionIgnoresMessages(t *testing.T) {
	c := Dummy()
	if c.IsConnected() {
		t.Error("Dummy().IsConnected() = true, want false")
	}
	msg := &RunMessage{ID: NewRunID(), Start: time.Now()}
	// Both calls must return promptly with nothing listening.
	c.RecordRun(msg)
	c.FinishRun(msg)
	c.Wait()
}

func TestNewRunID(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if len(a) != 26 {
		t.Errorf("run ID %q has length %d, want 26 (ULID)", a, len(a))
	}
	if a == b {
		t.Errorf("two run IDs are equal: %q", a)
	}
}

func TestNilMessagesAreSafe(t *testing.T) {
	c := Dummy()
	c.RecordRun(nil)
	c.FinishRun(nil)
}
