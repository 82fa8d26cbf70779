package wavemon

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
)

// serveSCPI answers SCPI queries on one connection, instrument-style.
func serveSCPI(t *testing.T, listener net.Listener) {
	t.Helper()
	conn, err := listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch strings.TrimSpace(line) {
		case "*IDN?":
			fmt.Fprintf(conn, "ACME,WM100,0042,1.0\n")
		case ":MEASure:WAVelength?":
			fmt.Fprintf(conn, "555.123456\n")
		default:
			// setup commands have no reply
		}
	}
}

func TestTCPTransport(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	go serveSCPI(t, listener)

	port := listener.Addr().(*net.TCPAddr).Port
	cfg := BusConfig{Resource: fmt.Sprintf("TCPIP0::127.0.0.1::%d::SOCKET", port)}
	tr, err := OpenTransport(cfg)
	if err != nil {
		t.Fatalf("OpenTransport: %v", err)
	}
	defer tr.Close()

	idn, err := tr.Ask("*IDN?")
	if err != nil {
		t.Fatalf("Ask(*IDN?): %v", err)
	}
	if idn != "ACME,WM100,0042,1.0" {
		t.Errorf("Ask(*IDN?) = %q", idn)
	}
	if err := tr.Send(":CONFigure:WAVelength"); err != nil {
		t.Errorf("Send: %v", err)
	}
	reply, err := tr.Ask(":MEASure:WAVelength?")
	if err != nil {
		t.Fatalf("Ask(:MEASure:WAVelength?): %v", err)
	}
	if reply != "555.123456" {
		t.Errorf("Ask(:MEASure:WAVelength?) = %q", reply)
	}
}

// TestWavemeterOverTCP drives the full gateway against a scripted instrument.
func TestWavemeterOverTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	go serveSCPI(t, listener)

	port := listener.Addr().(*net.TCPAddr).Port
	wm, err := OpenWavemeter(BusConfig{Resource: fmt.Sprintf("TCPIP0::127.0.0.1::%d::SOCKET", port)})
	if err != nil {
		t.Fatalf("OpenWavemeter: %v", err)
	}
	defer wm.Close()

	idn, err := wm.Identify()
	if err != nil || idn != "ACME,WM100,0042,1.0" {
		t.Errorf("Identify = (%q, %v)", idn, err)
	}
	if err := wm.Configure(DefaultSettings()); err != nil {
		t.Errorf("Configure: %v", err)
	}
	v, err := wm.Query("WAVelength")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if v != 555.123456 {
		t.Errorf("Query = %v, want 555.123456", v)
	}
}

func TestOpenTransportBadResources(t *testing.T) {
	bad := []string{
		"",
		"GPIB0::four::INSTR",
		"GPIB0::4",
		"TCPIP0::localhost::5025",
		"TCPIP0::localhost::5025::RAW",
		"ASRL/dev/ttyUSB0::fast::INSTR",
		"ASRL/dev/ttyUSB0::9600",
		"USB0::0x1234::INSTR",
	}
	for _, resource := range bad {
		if _, err := OpenTransport(BusConfig{Resource: resource}); err == nil {
			t.Errorf("OpenTransport(%q) returned nil error", resource)
		}
	}
}

func TestDefaultBusConfig(t *testing.T) {
	cfg := DefaultBusConfig()
	if cfg.Resource != "GPIB0::4::INSTR" {
		t.Errorf("default resource is %q", cfg.Resource)
	}
	if cfg.AdapterBaud <= 0 {
		t.Errorf("default adapter baud is %d", cfg.AdapterBaud)
	}
}
