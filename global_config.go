package wavemon

import (
	"log"
	"os"
	"time"
)

// Portnumbers structs can contain all TCP port numbers used by Wavemon.
type Portnumbers struct {
	RPC    int // JSON-RPC control port
	Status int // ZMQ PUB port for status broadcasts
	Data   int // ZMQ PUB port for live display frames
}

// Ports globally holds all TCP port numbers used by Wavemon.
var Ports Portnumbers

func setPortnumbers(base int) {
	Ports.RPC = base
	Ports.Status = base + 1
	Ports.Data = base + 2
}

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Gitdate string
	Date    string
	Summary string
	Host    string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.1.2",
	Githash: "no git hash computed",
	Date:    "no build date computed",
}

// WavemonStartTime is a global holding the time init() was run
var WavemonStartTime time.Time

// ProblemLogger will log warning messages to a file
var ProblemLogger *log.Logger

// UpdateLogger will log client updates to a file
var UpdateLogger *log.Logger

func init() {
	setPortnumbers(4210)
	WavemonStartTime = time.Now()

	// Wavemon main program will override these, but at least initialize with sensible values
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
	UpdateLogger = log.New(os.Stdout, "", log.LstdFlags)
}
