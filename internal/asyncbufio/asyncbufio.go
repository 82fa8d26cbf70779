// Package asyncbufio provides a buffered writer whose disk writes happen on
// a separate goroutine, so the producer never blocks on the filesystem. A
// blocking Flush is available for callers that need each row durable before
// taking the next one.
package asyncbufio

import (
	"bufio"
	"io"
	"time"
)

// Writer accumulates writes in a channel and moves them to an underlying
// bufio.Writer on its own goroutine, flushing on a timer and on demand.
type Writer struct {
	writer        *bufio.Writer
	datachannel   chan []byte   // holds data before writing it
	flushNow      chan struct{} // signals the write loop to flush
	flushComplete chan struct{} // signals the requester that a flush finished
	flushInterval time.Duration
}

// NewWriter creates a Writer over w with the given channel depth and
// periodic flush interval, and starts its write loop.
func NewWriter(w io.Writer, channelDepth int, flushInterval time.Duration) *Writer {
	aw := &Writer{
		writer:        bufio.NewWriter(w),
		datachannel:   make(chan []byte, channelDepth),
		flushNow:      make(chan struct{}),
		flushComplete: make(chan struct{}),
		flushInterval: flushInterval,
	}
	go aw.writeLoop()
	return aw
}

// Write queues p for writing. It returns io.ErrShortWrite if the channel is
// full rather than block the caller.
func (aw *Writer) Write(p []byte) (int, error) {
	select {
	case aw.datachannel <- p:
		return len(p), nil
	default:
		return 0, io.ErrShortWrite
	}
}

// WriteString queues s for writing (copying it to a byte slice).
func (aw *Writer) WriteString(s string) (int, error) {
	return aw.Write([]byte(s))
}

// Flush empties the channel into the underlying writer and flushes it.
// It blocks until the data is handed to the operating system.
func (aw *Writer) Flush() error {
	aw.flushNow <- struct{}{}
	<-aw.flushComplete
	return nil
}

// Close flushes remaining data and stops the write loop. Write or Flush
// after Close will panic; callers must not do that.
func (aw *Writer) Close() {
	close(aw.flushNow)
	<-aw.flushComplete
}

func (aw *Writer) writeLoop() {
	ticker := time.NewTicker(aw.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-aw.datachannel:
			aw.writer.Write(data)

		case _, ok := <-aw.flushNow:
			aw.flush()
			aw.flushComplete <- struct{}{}
			if !ok {
				return
			}

		case <-ticker.C:
			aw.flush()
		}
	}
}

// flush drains the channel before flushing the bufio.Writer, so everything
// queued before the Flush call is on disk when Flush returns.
func (aw *Writer) flush() {
	for {
		select {
		case data := <-aw.datachannel:
			aw.writer.Write(data)
		default:
			aw.writer.Flush()
			return
		}
	}
}
