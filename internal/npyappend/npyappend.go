// Package npyappend writes a 1-D float64 array in numpy's *.npy format,
// growable by appending. The shape in the header is a fixed-width field
// patched in place after every append, so the file is valid at any moment
// and an interrupted run still leaves a readable array.
package npyappend

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// npy headers must occupy a multiple of 64 bytes, preamble included.
const headerUnits = 64

const shapeDigits = 10 // width of the shape field patched on each append

// Writer appends float64 values to an open .npy file.
type Writer struct {
	file         *os.File
	shapeOffset  int64
	itemsWritten int
}

// NewWriter writes the npy header for an empty '<f8' array to f and returns
// a Writer positioned for appends.
func NewWriter(f *os.File) (*Writer, error) {
	preamble := []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 0x01, 0x00, 0x00, 0x00}
	prefix := "{'descr': '<f8', 'fortran_order': False, 'shape': ("
	dict := fmt.Sprintf("%s%-*d,), }", prefix, shapeDigits, 0)

	// Pad the dict with spaces plus a final newline to the promised size.
	nunits := (len(preamble) + len(dict) + headerUnits) / headerUnits
	headerSize := nunits*headerUnits - len(preamble)
	preamble[8] = byte(headerSize % 256)
	preamble[9] = byte(headerSize / 256)
	header := append(preamble, dict...)
	for len(header) < nunits*headerUnits-1 {
		header = append(header, ' ')
	}
	header = append(header, '\n')

	if _, err := f.Write(header); err != nil {
		return nil, err
	}
	return &Writer{
		file:        f,
		shapeOffset: int64(len(preamble) + len(prefix)),
	}, nil
}

// Append writes the values to the end of the file and patches the header
// shape to include them.
func (w *Writer) Append(values []float64) error {
	if err := binary.Write(w.file, binary.LittleEndian, values); err != nil {
		return err
	}
	w.itemsWritten += len(values)
	shape := fmt.Sprintf("%-*d", shapeDigits, w.itemsWritten)
	if _, err := w.file.Seek(w.shapeOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write([]byte(shape)); err != nil {
		return err
	}
	_, err := w.file.Seek(0, io.SeekEnd)
	return err
}

// Items reports how many values have been written.
func (w *Writer) Items() int {
	return w.itemsWritten
}

// Close closes the underlying file. The header is already consistent.
func (w *Writer) Close() error {
	return w.file.Close()
}
