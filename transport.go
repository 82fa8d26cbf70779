package wavemon

// Bus transports for SCPI instruments. A resource string in the VISA style
// selects the transport:
//
//	TCPIP0::hostname::5025::SOCKET    raw SCPI over a TCP socket
//	ASRL/dev/ttyUSB0::9600::INSTR     SCPI over a serial port
//	GPIB0::4::INSTR                   GPIB via a Prologix USB adapter
//
// The GPIB form needs a serial adapter device, given in BusConfig.

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// BusConfig names the instrument on its hardware bus.
type BusConfig struct {
	Resource      string // VISA-style resource string
	AdapterDevice string // serial device of the Prologix GPIB adapter
	AdapterBaud   int    // baud rate of the adapter (0 means 115200)
}

// DefaultBusConfig returns the bus settings for the usual lab setup.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Resource:      "GPIB0::4::INSTR",
		AdapterDevice: "/dev/ttyUSB0",
		AdapterBaud:   115200,
	}
}

// Transport is a line-oriented command connection to an instrument bus.
// Send writes one command without expecting a reply; Ask writes one command
// and blocks until the one-line reply arrives. There is no per-query timeout:
// a hung instrument blocks the caller.
type Transport interface {
	Send(cmd string) error
	Ask(cmd string) (string, error)
	Close() error
}

const dialTimeout = 5 * time.Second

// OpenTransport parses the resource string and opens the matching transport.
func OpenTransport(cfg BusConfig) (Transport, error) {
	fields := strings.Split(cfg.Resource, "::")
	head := fields[0]
	switch {
	case strings.HasPrefix(head, "TCPIP"):
		if len(fields) != 4 || fields[3] != "SOCKET" {
			return nil, fmt.Errorf("resource %q: want TCPIP<n>::host::port::SOCKET", cfg.Resource)
		}
		return openTCPTransport(fields[1], fields[2])

	case strings.HasPrefix(head, "ASRL"):
		if len(fields) != 3 || fields[2] != "INSTR" {
			return nil, fmt.Errorf("resource %q: want ASRL<device>::baud::INSTR", cfg.Resource)
		}
		device := strings.TrimPrefix(head, "ASRL")
		baud, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("resource %q: bad baud rate %q", cfg.Resource, fields[1])
		}
		return openSerialTransport(device, baud)

	case strings.HasPrefix(head, "GPIB"):
		if len(fields) != 3 || fields[2] != "INSTR" {
			return nil, fmt.Errorf("resource %q: want GPIB<board>::address::INSTR", cfg.Resource)
		}
		addr, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("resource %q: bad GPIB address %q", cfg.Resource, fields[1])
		}
		return openPrologixTransport(cfg.AdapterDevice, cfg.AdapterBaud, addr)
	}
	return nil, fmt.Errorf("resource %q: unrecognized bus type", cfg.Resource)
}

// tcpTransport is raw SCPI over a TCP socket (LXI instruments, port 5025).
type tcpTransport struct {
	conn   net.Conn
	reader *bufio.Reader
}

func openTCPTransport(host, port string) (*tcpTransport, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), dialTimeout)
	if err != nil {
		return nil, err
	}
	return &tcpTransport{conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (t *tcpTransport) Send(cmd string) error {
	_, err := fmt.Fprintf(t.conn, "%s\n", cmd)
	return err
}

func (t *tcpTransport) Ask(cmd string) (string, error) {
	if err := t.Send(cmd); err != nil {
		return "", err
	}
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// serialTransport is SCPI over a serial port.
type serialTransport struct {
	port   *serial.Port
	reader *bufio.Reader
}

func openSerialTransport(device string, baud int) (*serialTransport, error) {
	if baud == 0 {
		baud = 9600
	}
	c := &serial.Config{Name: device, Baud: baud}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}
	return &serialTransport{port: port, reader: bufio.NewReader(port)}, nil
}

func (t *serialTransport) Send(cmd string) error {
	_, err := t.port.Write([]byte(cmd + "\n"))
	return err
}

func (t *serialTransport) Ask(cmd string) (string, error) {
	if err := t.Send(cmd); err != nil {
		return "", err
	}
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}

// prologixTransport drives a GPIB instrument behind a Prologix GPIB-USB
// adapter. The adapter itself appears as a serial port; ++ commands address
// it rather than the instrument.
type prologixTransport struct {
	serialTransport
	gpibAddress int
}

func openPrologixTransport(device string, baud, addr int) (*prologixTransport, error) {
	if baud == 0 {
		baud = 115200
	}
	st, err := openSerialTransport(device, baud)
	if err != nil {
		return nil, err
	}
	t := &prologixTransport{serialTransport: *st, gpibAddress: addr}
	setup := []string{
		"++mode 1", // adapter is the bus controller
		fmt.Sprintf("++addr %d", addr),
		"++auto 1", // adapter reads the instrument reply after each query
		"++eoi 1",
	}
	for _, cmd := range setup {
		if err := t.serialTransport.Send(cmd); err != nil {
			t.port.Close()
			return nil, fmt.Errorf("prologix setup %q: %w", cmd, err)
		}
	}
	return t, nil
}
