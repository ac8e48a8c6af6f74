// Package meshio writes meshes and fields in formats read by common
// post-processing tools (ParaView, NumPy).
package meshio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mfauto/mfauto/data"
)

// Formats lists the supported mesh output formats (file extensions
// without dot)
var Formats = []string{"xdmf", "vtk"}

// SupportedFormat returns true if the format can be written
func SupportedFormat(format string) bool {
	for _, f := range Formats {
		if f == strings.ToLower(format) {
			return true
		}
	}
	return false
}

// Write writes the mesh and its fields. The format is chosen from the
// file extension.
func Write(path string, mesh *data.Mesh) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	var write func(*bufio.Writer, *data.Mesh) error
	switch ext {
	case "xdmf":
		write = writeXDMF
	case "vtk":
		write = writeVTK
	default:
		return fmt.Errorf("unsupported mesh format %q, supported: %v", ext, Formats)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	err = write(w, mesh)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("Error writing %v: %w", path, err)
	}
	return nil
}

// activeType returns the cell type fields and topology are written for
func activeType(m *data.Mesh) (data.CellType, error) {
	if m.CellType != "" {
		if len(m.Types()) > 1 {
			return "", fmt.Errorf("mesh has several cell types: %v", m.Types())
		}
		return m.CellType, nil
	}
	types := m.Types()
	if len(types) != 1 {
		return "", fmt.Errorf("expected a single cell type, mesh has: %v", types)
	}
	return types[0], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
