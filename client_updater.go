package wavemon

// Contains the client updater, which publishes JSON-encoded messages giving
// the latest Wavemon state on the status port.

import (
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// ClientUpdate carries one message to be published on the status port.
type ClientUpdate struct {
	tag   string
	state interface{}
}

// RunClientUpdater forwards any message from its input channel to the ZMQ
// publisher socket, to publish any information that clients need to know.
// It terminates when abort is closed.
func RunClientUpdater(messages <-chan ClientUpdate, portstatus int, abort <-chan struct{}) {
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		ProblemLogger.Printf("could not create status publisher: %v", err)
		return
	}
	defer pubSocket.Close()
	if err := pubSocket.Bind(fmt.Sprintf("tcp://*:%d", portstatus)); err != nil {
		ProblemLogger.Printf("could not bind status publisher to port %d: %v", portstatus, err)
		return
	}

	for {
		select {
		case <-abort:
			return
		case update := <-messages:
			message, err := json.Marshal(update.state)
			if err != nil {
				ProblemLogger.Printf("could not encode %s update: %v", update.tag, err)
				continue
			}
			if _, err := pubSocket.SendMessage(update.tag, message); err != nil {
				ProblemLogger.Printf("could not publish %s update: %v", update.tag, err)
			}
		}
	}
}
