package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/mfauto/mfauto/data"
)

var npyMagic = []byte("\x93NUMPY")

// WriteNPY writes field values as a NumPy .npy array of little endian
// float64, shape (n,) for scalars and (n, components) otherwise.
func WriteNPY(path string, f data.Field) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	err = EncodeNPY(w, f)
	if err == nil {
		err = w.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// EncodeNPY writes the .npy v1.0 encoding of the field to w
func EncodeNPY(w *bufio.Writer, f data.Field) error {
	shape := fmt.Sprintf("(%v,)", f.Len())
	if f.Components > 1 {
		shape = fmt.Sprintf("(%v, %v)", f.Len(), f.Components)
	}

	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %v, }", shape)
	// magic(6) + version(2) + header length(2) + header + newline,
	// padded to a multiple of 64 bytes
	total := 10 + len(header) + 1
	pad := (64 - total%64) % 64
	header += string(bytes.Repeat([]byte{' '}, pad)) + "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := w.WriteString(header); err != nil {
		return err
	}

	var b [8]byte
	for _, v := range f.Values {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}
