package wavemon

import (
	"fmt"
	"math/rand"
	"time"
)

// Default range of synthetic wavelengths, in nm. Plausible for a HeNe-area
// laser and easy to spot in a plot.
const (
	SyntheticMin = 500.0
	SyntheticMax = 600.0
)

// SyntheticInstrument is an Instrument that answers queries with uniformly
// distributed pseudo-random values in [Min, Max). It lets the whole readout
// path run without hardware, taking the same code path as a real wavemeter
// minus the bus calls.
type SyntheticInstrument struct {
	Min, Max float64
	rng      *rand.Rand
}

// NewSyntheticInstrument creates a synthetic source for the given range.
func NewSyntheticInstrument(min, max float64) *SyntheticInstrument {
	return &SyntheticInstrument{
		Min: min,
		Max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Identify returns a fixed identification string; no hardware is contacted.
func (si *SyntheticInstrument) Identify() (string, error) {
	return fmt.Sprintf("SPECTOOLS,SYNTHETIC-WM,0,%s", Build.Version), nil
}

// Configure is a no-op for the synthetic source.
func (si *SyntheticInstrument) Configure(s Settings) error {
	return nil
}

// Query draws one uniform value in [Min, Max). The property is ignored.
func (si *SyntheticInstrument) Query(property string) (float64, error) {
	return si.Min + si.rng.Float64()*(si.Max-si.Min), nil
}

// Close is a no-op for the synthetic source.
func (si *SyntheticInstrument) Close() error {
	return nil
}
