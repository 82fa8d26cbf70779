package asyncbufio

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWriteThenFlush(t *testing.T) {
	var buf bytes.Buffer
	aw := NewWriter(&buf, 16, time.Minute)
	rows := []string{"0.000000,512.5\n", "0.100000,513.0\n", "0.200000,512.8\n"}
	for _, row := range rows {
		if _, err := aw.WriteString(row); err != nil {
			t.Fatalf("WriteString(%q) returned %v", row, err)
		}
		if err := aw.Flush(); err != nil {
			t.Fatalf("Flush returned %v", err)
		}
	}
	want := strings.Join(rows, "")
	if buf.String() != want {
		t.Errorf("after per-row flushes buffer is %q, want %q", buf.String(), want)
	}
	aw.Close()
}

func TestCloseFlushesRemainder(t *testing.T) {
	var buf bytes.Buffer
	aw := NewWriter(&buf, 16, time.Minute)
	aw.WriteString("header\n")
	aw.WriteString("tail\n")
	aw.Close()
	if got := buf.String(); got != "header\ntail\n" {
		t.Errorf("after Close buffer is %q, want %q", got, "header\ntail\n")
	}
}

func TestWriteFullChannel(t *testing.T) {
	var buf bytes.Buffer
	aw := NewWriter(&buf, 1, time.Minute)
	// One write fits; the channel may then be full before the write loop
	// drains it, and Write must not block.
	aw.Write([]byte("a"))
	for range 100 {
		aw.Write([]byte("b"))
	}
	aw.Close()
	if !strings.HasPrefix(buf.String(), "a") {
		t.Errorf("first write lost: buffer is %q", buf.String())
	}
}
