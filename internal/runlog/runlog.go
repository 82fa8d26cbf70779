// Package runlog records readout-run metadata in a ClickHouse database, so
// the lab can find which run produced which output directory. The database
// is optional: when no server answers, a dummy connection swallows all
// messages and the readout proceeds unaffected.
package runlog

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/oklog/ulid/v2"
)

const databaseName = "wavemon" // official SQL name of the database

// RunMessage is the information required to make an entry in the runs table.
type RunMessage struct {
	ID        string
	Hostname  string
	Version   string
	Resource  string
	Property  string
	Synthetic bool
	Directory string
	Filename  string
	Rows      int
	Start     time.Time
	End       time.Time
}

// NewRunID returns a fresh ULID for a readout run.
func NewRunID() string {
	return ulid.Make().String()
}

// Connection wraps the ClickHouse connection and the channel feeding it.
type Connection struct {
	conn   clickhouse.Conn
	err    error
	runmsg chan *RunMessage
	sync.WaitGroup
}

// IsConnected says whether the database can accept inserts.
func (c *Connection) IsConnected() bool {
	return c != nil && c.conn != nil && c.err == nil
}

// Start opens the database connection and launches the goroutine that
// handles messages until abort is closed. On any connection problem it
// returns a non-nil dummy that ignores all messages.
func Start(abort <-chan struct{}) *Connection {
	c := createConnection()
	go c.handleConnection(abort)
	return c
}

// Dummy returns a Connection that is never connected. Useful in tests and
// when the database is disabled by configuration.
func Dummy() *Connection {
	return &Connection{}
}

func createConnection() *Connection {
	c := &Connection{}
	addr := os.Getenv("WAVEMON_DB_ADDR")
	if addr == "" {
		addr = "localhost:9000"
	}
	opt := clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: databaseName,
			Username: os.Getenv("WAVEMON_DB_USER"),
			Password: os.Getenv("WAVEMON_DB_PASSWORD"),
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "wavemon", Version: "unknown"},
			},
		},
	}
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		c.err = err
		c.Add(1)
		return c
	}
	c.conn = conn
	c.Add(1)

	if err := conn.Ping(context.Background()); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("ClickHouse exception [%d] %s\n", exception.Code, exception.Message)
		}
		c.err = err
		return c
	}
	c.runmsg = make(chan *RunMessage)
	return c
}

func (c *Connection) handleConnection(abort <-chan struct{}) {
	defer c.Done()
	if !c.IsConnected() {
		<-abort
		return
	}
	for {
		select {
		case <-abort:
			return
		case msg := <-c.runmsg:
			c.insertRun(msg)
		}
	}
}

// RecordRun enters the run in the database. It blocks until the message is
// accepted, so the run row exists before any later updates refer to it.
func (c *Connection) RecordRun(msg *RunMessage) {
	if !c.IsConnected() || msg == nil {
		return
	}
	c.runmsg <- msg
}

// FinishRun stamps the run's end time and updates its database entry. Like
// RecordRun it blocks until the message is accepted, so a run entered at
// startup is finalized before the process exits.
func (c *Connection) FinishRun(msg *RunMessage) {
	if !c.IsConnected() || msg == nil {
		return
	}
	msg.End = time.Now()
	c.runmsg <- msg
}

func (c *Connection) insertRun(m *RunMessage) {
	if !c.IsConnected() || m == nil {
		return
	}
	ctx := context.Background()
	const nowait = false
	formattedStart := m.Start.Format("2006-01-02 15:04:05.000000")
	formattedEnd := m.End.Format("2006-01-02 15:04:05.000000")
	if err := c.conn.AsyncInsert(ctx, `INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.ID, m.Hostname, m.Version, m.Resource, m.Property, m.Synthetic,
		m.Directory, m.Filename, m.Rows, formattedStart, formattedEnd,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into runs ", err)
		c.err = err
	}
}
