package meshio

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/mfauto/mfauto/data"
)

var vtkCellTypes = map[data.CellType]int{
	data.CellLine:       3,
	data.CellTriangle:   5,
	data.CellQuad:       9,
	data.CellTetra:      10,
	data.CellHexahedron: 12,
}

// writeVTK writes a legacy ASCII VTK unstructured grid. All cell types
// are written, cell fields require a single cell type.
func writeVTK(w *bufio.Writer, m *data.Mesh) error {
	types := m.Types()
	if len(types) == 0 {
		return fmt.Errorf("mesh has no cells: %w", data.ErrNoMesh)
	}

	fmt.Fprintln(w, "# vtk DataFile Version 4.2")
	fmt.Fprintln(w, "mfauto mesh")
	fmt.Fprintln(w, "ASCII")
	fmt.Fprintln(w, "DATASET UNSTRUCTURED_GRID")

	fmt.Fprintf(w, "POINTS %v double\n", len(m.Points))
	for _, p := range m.Points {
		fmt.Fprintf(w, "%v %v %v\n", formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]))
	}

	ncells := 0
	size := 0
	for _, ct := range types {
		for _, c := range m.Cells[ct] {
			ncells++
			size += len(c) + 1
		}
	}

	fmt.Fprintf(w, "CELLS %v %v\n", ncells, size)
	for _, ct := range types {
		for _, c := range m.Cells[ct] {
			fmt.Fprint(w, len(c))
			for _, p := range c {
				fmt.Fprintf(w, " %v", p)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "CELL_TYPES %v\n", ncells)
	for _, ct := range types {
		for range m.Cells[ct] {
			fmt.Fprintln(w, vtkCellTypes[ct])
		}
	}

	if len(m.PointData) > 0 {
		fmt.Fprintf(w, "POINT_DATA %v\n", len(m.Points))
		if err := writeVTKFields(w, m.PointData, len(m.Points)); err != nil {
			return err
		}
	}

	if len(m.CellData) > 0 {
		if _, err := activeType(m); err != nil {
			return err
		}
		fmt.Fprintf(w, "CELL_DATA %v\n", ncells)
		if err := writeVTKFields(w, m.CellData, ncells); err != nil {
			return err
		}
	}

	return nil
}

func writeVTKFields(w *bufio.Writer, fields []data.Field, n int) error {
	fmt.Fprintf(w, "FIELD FieldData %v\n", len(fields))
	for _, f := range fields {
		if f.Len() != n {
			return fmt.Errorf("field %v has %v entries, expected %v", f.Name, f.Len(), n)
		}
		fmt.Fprintf(w, "%v %v %v double\n", vtkName(f.Name), f.Components, n)
		for i := 0; i < n; i++ {
			for j, v := range f.At(i) {
				if j > 0 {
					w.WriteByte(' ')
				}
				w.WriteString(formatFloat(v))
			}
			w.WriteByte('\n')
		}
	}
	return nil
}

// VTK names are whitespace delimited
func vtkName(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
