package data

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testMesh() *Mesh {
	m := NewMesh()
	m.Points = [][3]float64{
		{0, 0, 0},
		{1, 0, 0},
		{9, 9, 9}, // free
		{0, 1, 0},
		{1, 1, 0},
	}
	m.PointIDs = map[int]int{10: 0, 11: 1, 12: 2, 13: 3, 14: 4}
	m.Cells[CellTriangle] = [][]int{{0, 1, 3}, {1, 4, 3}}
	m.CellIDs[CellTriangle] = []int{100, 101}
	return m
}

func TestRemoveFreePoints(t *testing.T) {
	m := testMesh()
	m.SetPointField(Field{Name: "t", Components: 1, Values: []float64{0, 1, 2, 3, 4}})
	m.RemoveFreePoints()

	if len(m.Points) != 4 {
		t.Fatal("expected 4 points, got: ", len(m.Points))
	}

	expCells := [][]int{{0, 1, 2}, {1, 3, 2}}
	if diff := cmp.Diff(expCells, m.Cells[CellTriangle]); diff != "" {
		t.Fatal("cells mismatch: ", diff)
	}

	expIDs := map[int]int{10: 0, 11: 1, 13: 2, 14: 3}
	if diff := cmp.Diff(expIDs, m.PointIDs); diff != "" {
		t.Fatal("point ids mismatch: ", diff)
	}

	if diff := cmp.Diff([]float64{0, 1, 3, 4}, m.PointData[0].Values); diff != "" {
		t.Fatal("point data mismatch: ", diff)
	}

	if diff := cmp.Diff([]int{10, 11, 13, 14}, m.PointIDsSorted()); diff != "" {
		t.Fatal("sorted ids mismatch: ", diff)
	}
}

func TestKeepDominantCellType(t *testing.T) {
	m := testMesh()
	m.Cells[CellTetra] = [][]int{{0, 1, 3, 4}}
	m.CellIDs[CellTetra] = []int{200}
	m.SetCellField(Field{Name: "x", Components: 1, Values: []float64{1}})

	if err := m.KeepDominantCellType(); err != nil {
		t.Fatal(err)
	}

	if m.CellType != CellTetra {
		t.Fatal("expected tetra, got: ", m.CellType)
	}

	if len(m.Cells) != 1 || len(m.CellData) != 0 {
		t.Fatal("other cell types or fields not dropped")
	}

	if m.CellIndex()[200] != 0 {
		t.Fatal("wrong cell index")
	}

	empty := NewMesh()
	if err := empty.KeepDominantCellType(); err == nil {
		t.Fatal("expected error for empty mesh")
	}
}

func TestCellPointAveraging(t *testing.T) {
	m := testMesh()
	m.RemoveFreePoints()
	if err := m.KeepDominantCellType(); err != nil {
		t.Fatal(err)
	}

	cf := Field{Name: "c", Components: 1, Values: []float64{2, 4}}
	pf, err := m.CellToPoint(cf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float64{2, 3, 3, 4}, pf.Values); diff != "" {
		t.Fatal("cell to point mismatch: ", diff)
	}

	back, err := m.PointToCell(Field{Name: "p", Components: 1, Values: []float64{3, 3, 3, 6}})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float64{3, 4}, back.Values); diff != "" {
		t.Fatal("point to cell mismatch: ", diff)
	}

	if _, err := m.CellToPoint(Field{Name: "bad", Components: 1, Values: []float64{1}}); err == nil {
		t.Fatal("expected size error")
	}

	if n := m.CellsPerPoint(); n[1] != 2 || n[0] != 1 {
		t.Fatal("wrong cells per point: ", n)
	}
}

func TestFieldReorder(t *testing.T) {
	f := Field{Name: "s", Components: 3, Values: []float64{1, 2, 3, 4, 5, 6}}
	r, err := f.Reorder([]int{0, 2, 1})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float64{1, 3, 2, 4, 6, 5}, r.Values); diff != "" {
		t.Fatal("reorder mismatch: ", diff)
	}

	if _, err := f.Reorder([]int{0}); err == nil {
		t.Fatal("expected error")
	}

	n := NewField("n", 2, 2)
	if n.Len() != 2 || !math.IsNaN(n.Values[3]) {
		t.Fatal("new field not NaN filled")
	}
}

func TestIOName(t *testing.T) {
	tests := map[string]string{
		"Pressure":                          "pressure",
		"Volumetric shrinkage, at ejection": "volumetric_shrinkage_at_ejection",
		"Temperature/Time":                  "temperaturetime",
	}

	for in, exp := range tests {
		if got := IOName(in); got != exp {
			t.Errorf("IOName(%q) = %q, expected %q", in, got, exp)
		}
	}
}

func TestCellTypes(t *testing.T) {
	ct, ok := CellTypeFromPatran(5)
	if !ok || ct != CellTetra {
		t.Fatal("shape 5 should be tetra")
	}

	if CellHexahedron.PatranShape() != 8 || CellTriangle.NumNodes() != 3 {
		t.Fatal("wrong cell type data")
	}

	if _, err := ParseCellType("wedge"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
