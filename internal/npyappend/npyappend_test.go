package npyappend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
)

func TestAppendAndReadBack(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "wavelengths.npy")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	want := []float64{532.001, 532.002, 531.999}
	for _, v := range want {
		if err := w.Append([]float64{v}); err != nil {
			t.Fatalf("Append(%v): %v", v, err)
		}
	}
	if w.Items() != len(want) {
		t.Errorf("Items() = %d, want %d", w.Items(), len(want))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// The file must be readable by a standard npy reader.
	rf, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	var got []float64
	if err := npyio.Read(rf, &got); err != nil {
		t.Fatalf("npyio.Read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read back %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHeaderSizeIsMultipleOf64(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "empty.npy")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewWriter(f); err != nil {
		t.Fatal(err)
	}
	f.Close()
	data, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if len(data)%64 != 0 {
		t.Errorf("header length %d is not a multiple of 64", len(data))
	}
	if data[len(data)-1] != '\n' {
		t.Errorf("header does not end with a newline")
	}
}
