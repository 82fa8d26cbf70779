package wavemon

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// ReadoutControl is the sub-server that reports on and stops the running
// readout. It is registered with the JSON-RPC server.
type ReadoutControl struct {
	readout       *Readout
	stop          *StopSignal
	status        ReadoutStatus
	clientUpdates chan<- ClientUpdate
}

// ReadoutStatus is the status that ReadoutControl reports to clients.
type ReadoutStatus struct {
	Running   bool
	Synthetic bool
	Resource  string
	Property  string
	Directory string
	Ticks     int
	LastTime  float64
	LastValue float64
}

// NewReadoutControl makes a control server for one readout.
func NewReadoutControl(ro *Readout, stop *StopSignal, status ReadoutStatus, updates chan<- ClientUpdate) *ReadoutControl {
	return &ReadoutControl{
		readout:       ro,
		stop:          stop,
		status:        status,
		clientUpdates: updates,
	}
}

// Status fills reply with the current readout state.
func (rc *ReadoutControl) Status(dummy *string, reply *ReadoutStatus) error {
	*reply = rc.computeStatus()
	return nil
}

// Stop raises the stop signal; the readout finishes its current tick,
// closes its files and exits.
func (rc *ReadoutControl) Stop(dummy *string, reply *bool) error {
	if rc.readout == nil {
		return fmt.Errorf("no readout is active")
	}
	UpdateLogger.Printf("readout stop requested over RPC")
	rc.stop.Set()
	*reply = true
	return nil
}

// SendAllStatus causes a broadcast to clients containing all broadcastable
// status info.
func (rc *ReadoutControl) SendAllStatus(dummy *string, reply *bool) error {
	rc.broadcastStatus()
	*reply = true
	return nil
}

func (rc *ReadoutControl) computeStatus() ReadoutStatus {
	status := rc.status
	status.Running = !rc.stop.IsSet()
	if rc.readout != nil {
		ticks, last := rc.readout.Progress()
		status.Ticks = ticks
		status.LastTime = last.Elapsed
		status.LastValue = last.Value
	}
	return status
}

func (rc *ReadoutControl) broadcastStatus() {
	if rc.clientUpdates != nil {
		rc.clientUpdates <- ClientUpdate{"STATUS", rc.computeStatus()}
	}
}

// RunRPCServer sets up and runs the JSON-RPC server until abort is closed.
// It also broadcasts the status periodically on the status port.
func RunRPCServer(rc *ReadoutControl, portrpc int, abort <-chan struct{}) error {
	server := rpc.NewServer()
	if err := server.Register(rc); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", portrpc))
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-abort:
				listener.Close()
				return
			case <-ticker.C:
				rc.broadcastStatus()
			}
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-abort:
				return nil
			default:
				return fmt.Errorf("rpc accept: %w", err)
			}
		}
		UpdateLogger.Printf("new RPC connection established")
		go server.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}
