// waveplot is a terminal client for the wavemon live display stream. It
// subscribes to the daemon's data port and keeps one status line updated,
// the way the instrument's front panel would.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	zmq "github.com/pebbe/zmq4"

	"github.com/spectools/wavemon"
)

func main() {
	host := flag.String("host", "localhost", "host running the wavemon daemon")
	port := flag.Int("port", wavemon.Ports.Data, "data port of the wavemon daemon")
	raw := flag.Bool("raw", false, "print one full frame per line instead of a status line")
	flag.Parse()

	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		log.Fatal("could not create subscriber: ", err)
	}
	defer sub.Close()
	if err := sub.Connect(fmt.Sprintf("tcp://%s:%d", *host, *port)); err != nil {
		log.Fatal("could not connect subscriber: ", err)
	}
	sub.SetSubscribe("WAVE")

	for {
		parts, err := sub.RecvMessage(0)
		if err != nil {
			log.Fatal("receive: ", err)
		}
		if len(parts) < 2 {
			continue
		}
		var frame wavemon.DisplayFrame
		if err := json.Unmarshal([]byte(parts[1]), &frame); err != nil {
			log.Printf("bad frame: %v", err)
			continue
		}
		if frame.Points == 0 {
			continue
		}
		if *raw {
			fmt.Println(parts[1])
			continue
		}
		last := frame.Points - 1
		fmt.Fprintf(os.Stdout, "\rTime: %.2f s, Wavelength: %.6f nm  (window n=%d mean=%.6f sd=%.6f)",
			frame.Times[last], frame.Values[last], frame.Points, frame.Mean, frame.StdDev)
		os.Stdout.Sync()
	}
}
