package data

import (
	"fmt"
	"math"
	"sort"
)

// CellType is a mesh cell type. Names follow the meshio conventions.
type CellType string

// Supported cell types
const (
	CellLine       CellType = "line"
	CellTriangle   CellType = "triangle"
	CellQuad       CellType = "quad"
	CellTetra      CellType = "tetra"
	CellHexahedron CellType = "hexahedron"
)

// CellTypes lists all cell types in a stable order
var CellTypes = []CellType{CellLine, CellTriangle, CellQuad, CellTetra, CellHexahedron}

var patranShapes = map[int]CellType{
	2: CellLine,
	3: CellTriangle,
	4: CellQuad,
	5: CellTetra,
	8: CellHexahedron,
}

// CellTypeFromPatran returns the cell type for a Patran element shape code
func CellTypeFromPatran(shape int) (CellType, bool) {
	ct, ok := patranShapes[shape]
	return ct, ok
}

// ParseCellType converts a name like "tetra" to a CellType
func ParseCellType(s string) (CellType, error) {
	for _, ct := range CellTypes {
		if string(ct) == s {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown cell type: %v", s)
}

// PatranShape returns the Patran element shape code
func (c CellType) PatranShape() int {
	for shape, ct := range patranShapes {
		if ct == c {
			return shape
		}
	}
	return 0
}

// NumNodes returns the number of corner nodes of a linear cell
func (c CellType) NumNodes() int {
	switch c {
	case CellLine:
		return 2
	case CellTriangle:
		return 3
	case CellQuad, CellTetra:
		return 4
	case CellHexahedron:
		return 8
	}
	return 0
}

// Mesh is an unstructured mesh exported from a Moldflow study.
// Cells reference points by index. PointIDs and CellIDs map the
// Moldflow node/element identifiers to these indices.
type Mesh struct {
	Points   [][3]float64
	PointIDs map[int]int
	Cells    map[CellType][][]int
	CellIDs  map[CellType][]int

	// CellType is the cell type fields are defined on. It is set by
	// KeepDominantCellType.
	CellType CellType

	PointData []Field
	CellData  []Field
}

// NewMesh returns an empty mesh
func NewMesh() *Mesh {
	return &Mesh{
		PointIDs: make(map[int]int),
		Cells:    make(map[CellType][][]int),
		CellIDs:  make(map[CellType][]int),
	}
}

// NumCells returns the number of cells of all types
func (m *Mesh) NumCells() int {
	n := 0
	for _, c := range m.Cells {
		n += len(c)
	}
	return n
}

// Types returns the cell types present in the mesh in a stable order
func (m *Mesh) Types() []CellType {
	var ret []CellType
	for _, ct := range CellTypes {
		if len(m.Cells[ct]) > 0 {
			ret = append(ret, ct)
		}
	}
	return ret
}

// Scale multiplies all coordinates by factor
func (m *Mesh) Scale(factor float64) {
	for i := range m.Points {
		for j := 0; j < 3; j++ {
			m.Points[i][j] *= factor
		}
	}
}

// RemoveFreePoints removes points not referenced by any cell and
// renumbers cell connectivity, point identifiers and point data.
func (m *Mesh) RemoveFreePoints() {
	used := make([]bool, len(m.Points))
	for _, cells := range m.Cells {
		for _, c := range cells {
			for _, p := range c {
				used[p] = true
			}
		}
	}

	remap := make([]int, len(m.Points))
	points := make([][3]float64, 0, len(m.Points))
	for i, p := range m.Points {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(points)
		points = append(points, p)
	}

	if len(points) == len(m.Points) {
		return
	}

	for _, cells := range m.Cells {
		for _, c := range cells {
			for j, p := range c {
				c[j] = remap[p]
			}
		}
	}

	ids := make(map[int]int, len(points))
	for id, idx := range m.PointIDs {
		if remap[idx] >= 0 {
			ids[id] = remap[idx]
		}
	}

	for i, f := range m.PointData {
		nf := NewField(f.Name, len(points), f.Components)
		for old, idx := range remap {
			if idx >= 0 {
				nf.Set(idx, f.At(old))
			}
		}
		m.PointData[i] = nf
	}

	m.Points = points
	m.PointIDs = ids
}

// CellsPerPoint returns the number of cells every point belongs to
func (m *Mesh) CellsPerPoint() []int {
	ret := make([]int, len(m.Points))
	for _, cells := range m.Cells {
		for _, c := range cells {
			for _, p := range c {
				ret[p]++
			}
		}
	}
	return ret
}

// KeepDominantCellType keeps a single cell type, 3D tetra if present,
// else 2D triangles, else the first available type. Fields are cleared.
func (m *Mesh) KeepDominantCellType() error {
	var keep CellType
	switch {
	case len(m.Cells[CellTetra]) > 0:
		keep = CellTetra
	case len(m.Cells[CellTriangle]) > 0:
		keep = CellTriangle
	default:
		types := m.Types()
		if len(types) == 0 {
			return fmt.Errorf("mesh has no cells: %w", ErrNoMesh)
		}
		keep = types[0]
	}

	m.CellType = keep
	m.Cells = map[CellType][][]int{keep: m.Cells[keep]}
	m.CellIDs = map[CellType][]int{keep: m.CellIDs[keep]}
	m.PointData = nil
	m.CellData = nil
	return nil
}

// CellIndex maps element identifiers of the active cell type to
// cell indices
func (m *Mesh) CellIndex() map[int]int {
	ids := m.CellIDs[m.CellType]
	ret := make(map[int]int, len(ids))
	for i, id := range ids {
		ret[id] = i
	}
	return ret
}

// PointIDsSorted returns the Moldflow node identifiers in index order
func (m *Mesh) PointIDsSorted() []int {
	ret := make([]int, 0, len(m.PointIDs))
	for id := range m.PointIDs {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool {
		return m.PointIDs[ret[i]] < m.PointIDs[ret[j]]
	})
	return ret
}

// SetPointField adds or replaces a point field
func (m *Mesh) SetPointField(f Field) {
	m.PointData = setField(m.PointData, f)
}

// SetCellField adds or replaces a cell field
func (m *Mesh) SetCellField(f Field) {
	m.CellData = setField(m.CellData, f)
}

func setField(fields []Field, f Field) []Field {
	for i := range fields {
		if fields[i].Name == f.Name {
			fields[i] = f
			return fields
		}
	}
	return append(fields, f)
}

// CellToPoint averages a field defined on the active cells to the points.
// Points not connected to any cell get NaN.
func (m *Mesh) CellToPoint(f Field) (Field, error) {
	cells := m.Cells[m.CellType]
	if f.Len() != len(cells) {
		return Field{}, fmt.Errorf("field %v has %v values, mesh has %v cells",
			f.Name, f.Len(), len(cells))
	}

	ret := Field{
		Name:       f.Name,
		Components: f.Components,
		Values:     make([]float64, len(m.Points)*f.Components),
	}
	count := make([]int, len(m.Points))

	for i, c := range cells {
		v := f.At(i)
		for _, p := range c {
			count[p]++
			for k := range v {
				ret.Values[p*f.Components+k] += v[k]
			}
		}
	}

	for p, n := range count {
		for k := 0; k < f.Components; k++ {
			if n == 0 {
				ret.Values[p*f.Components+k] = math.NaN()
			} else {
				ret.Values[p*f.Components+k] /= float64(n)
			}
		}
	}

	return ret, nil
}

// PointToCell averages a point field to the active cells
func (m *Mesh) PointToCell(f Field) (Field, error) {
	if f.Len() != len(m.Points) {
		return Field{}, fmt.Errorf("field %v has %v values, mesh has %v points",
			f.Name, f.Len(), len(m.Points))
	}

	cells := m.Cells[m.CellType]
	ret := Field{
		Name:       f.Name,
		Components: f.Components,
		Values:     make([]float64, len(cells)*f.Components),
	}

	for i, c := range cells {
		if len(c) == 0 {
			continue
		}
		for _, p := range c {
			v := f.At(p)
			for k := range v {
				ret.Values[i*f.Components+k] += v[k]
			}
		}
		for k := 0; k < f.Components; k++ {
			ret.Values[i*f.Components+k] /= float64(len(c))
		}
	}

	return ret, nil
}
