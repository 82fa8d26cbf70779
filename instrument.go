package wavemon

import (
	"fmt"
	"strconv"
	"strings"
)

// Settings holds the wavemeter options applied once at startup. They are
// immutable after Configure.
type Settings struct {
	Property   string // measured property, e.g. "WAVelength" or "FREQuency"
	Resolution string // display resolution, e.g. ".001"
	Medium     string // "air" or "vacuum"
	Averaging  string // "ON" or "OFF"
}

// DefaultSettings returns the factory-default wavemeter options.
func DefaultSettings() Settings {
	return Settings{
		Property:   "WAVelength",
		Resolution: ".001",
		Medium:     "air",
		Averaging:  "OFF",
	}
}

// Instrument is the capability the acquisition loop requires of a measurement
// instrument. Hardware wavemeters and the synthetic source both satisfy it.
type Instrument interface {
	// Identify asks the instrument for its identification string (*IDN?).
	Identify() (string, error)
	// Configure sends the setup commands. No reply is expected.
	Configure(Settings) error
	// Query requests one measurement of the named property and parses the
	// reply as a number. It blocks until the instrument answers.
	Query(property string) (float64, error)
	// Close releases the bus connection.
	Close() error
}

// Wavemeter speaks SCPI to a physical instrument over a Transport.
type Wavemeter struct {
	transport Transport
	resource  string
}

// OpenWavemeter opens the bus connection named by the VISA-style resource
// string in cfg and returns a Wavemeter ready to be identified and configured.
func OpenWavemeter(cfg BusConfig) (*Wavemeter, error) {
	tr, err := OpenTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Resource, err)
	}
	return &Wavemeter{transport: tr, resource: cfg.Resource}, nil
}

// Identify sends *IDN? and returns the instrument's answer.
func (wm *Wavemeter) Identify() (string, error) {
	idn, err := wm.transport.Ask("*IDN?")
	if err != nil {
		return "", fmt.Errorf("identify %s: %w", wm.resource, err)
	}
	return strings.TrimSpace(idn), nil
}

// Configure sends the four setup commands to the wavemeter.
func (wm *Wavemeter) Configure(s Settings) error {
	commands := []string{
		fmt.Sprintf(":CONFigure:%s", s.Property),
		fmt.Sprintf(":DISPlay:RESolution %s", s.Resolution),
		fmt.Sprintf(":SENSe:AVERage %s", s.Averaging),
		fmt.Sprintf(":SENSe:MEDium %s", s.Medium),
	}
	for _, cmd := range commands {
		if err := wm.transport.Send(cmd); err != nil {
			return fmt.Errorf("configure command %q: %w", cmd, err)
		}
	}
	return nil
}

// Query measures the named property once. A reply that does not parse as a
// number is an error; the caller treats it as fatal for the run.
func (wm *Wavemeter) Query(property string) (float64, error) {
	cmd := fmt.Sprintf(":MEASure:%s?", property)
	reply, err := wm.transport.Ask(cmd)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("reply %q to %s does not parse as a number", reply, cmd)
	}
	return value, nil
}

// Close closes the underlying bus connection.
func (wm *Wavemeter) Close() error {
	return wm.transport.Close()
}
