package wavemon

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spectools/wavemon/internal/asyncbufio"
	"github.com/spectools/wavemon/internal/npyappend"
)

// CSVHeader is the first row of every readout file.
const CSVHeader = "Time (s),Wavelength"

const csvFilename = "wavemeter_readout.csv"
const npySidecarFilename = "wavelengths.npy"

// Recording owns the output directory and files for one readout run. The
// acquisition loop is its only writer. Every appended row is flushed before
// Append returns, so an interrupted run loses nothing already measured.
type Recording struct {
	Active       bool
	Directory    string
	CSVFilename  string
	NPYFilename  string
	rowsWritten  int
	csvFile      *os.File
	writer       *asyncbufio.Writer
	npy          *npyappend.Writer
	sync.Mutex
}

// NewRecording creates readout/<YYYYMMDD_HHMMSS>/ under baseDir, opens the
// CSV file and writes its header. With sidecar set, a growable .npy file of
// the measured values is kept alongside the CSV.
func NewRecording(baseDir string, sidecar bool) (*Recording, error) {
	timestamp := time.Now().Format("20060102_150405")
	dir := filepath.Join(baseDir, "readout", timestamp)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, err
	}

	r := &Recording{
		Active:      true,
		Directory:   dir,
		CSVFilename: filepath.Join(dir, csvFilename),
	}
	f, err := os.Create(r.CSVFilename)
	if err != nil {
		return nil, err
	}
	r.csvFile = f
	r.writer = asyncbufio.NewWriter(f, 256, time.Second)
	if _, err := r.writer.WriteString(CSVHeader + "\n"); err != nil {
		return nil, err
	}
	if err := r.writer.Flush(); err != nil {
		return nil, err
	}

	if sidecar {
		r.NPYFilename = filepath.Join(dir, npySidecarFilename)
		nf, err := os.Create(r.NPYFilename)
		if err != nil {
			return nil, err
		}
		r.npy, err = npyappend.NewWriter(nf)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Append writes one sample row and flushes it to disk before returning.
func (r *Recording) Append(s Sample) error {
	r.Lock()
	defer r.Unlock()
	if !r.Active {
		return fmt.Errorf("cannot append to a closed recording")
	}
	row := fmt.Sprintf("%.6f,%.6f\n", s.Elapsed, s.Value)
	if _, err := r.writer.WriteString(row); err != nil {
		return err
	}
	if err := r.writer.Flush(); err != nil {
		return err
	}
	if r.npy != nil {
		if err := r.npy.Append([]float64{s.Value}); err != nil {
			return err
		}
	}
	r.rowsWritten++
	return nil
}

// Rows reports how many data rows have been written (the header excluded).
func (r *Recording) Rows() int {
	r.Lock()
	defer r.Unlock()
	return r.rowsWritten
}

// Close flushes and closes the output files. Idempotent.
func (r *Recording) Close() error {
	r.Lock()
	defer r.Unlock()
	if !r.Active {
		return nil
	}
	r.Active = false
	r.writer.Close()
	if err := r.csvFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", r.CSVFilename, err)
	}
	if r.npy != nil {
		if err := r.npy.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", r.NPYFilename, err)
		}
		r.npy = nil
	}
	return nil
}
