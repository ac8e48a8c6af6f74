package patran

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mfauto/mfauto/data"
)

var testNeutral = ` 25       0       0       1       0       0       0       0       0
PATRAN Neutral, exported by studyrlt
26       0       0       1       5       3       1       1       0
  01-Jan-20   10:00:00         3.0
 1       1       0       2       0       0       0       0       0
 0.000000000E+00 0.000000000E+00 0.000000000E+00
1G       6       0       0  000000
 1       2       0       2       0       0       0       0       0
 1.000000000E+00 0.000000000E+00 0.000000000E+00
1G       6       0       0  000000
 1       3       0       2       0       0       0       0       0
 0.000000000E+00 1.000000000E+00 0.000000000E+00
1G       6       0       0  000000
 1       4       0       2       0       0       0       0       0
 0.000000000E+00 0.000000000E+00-1.000000000E-03
1G       6       0       0  000000
 1       5       0       2       0       0       0       0       0
 5.000000000E+00 5.000000000E+00 5.000000000E+00
1G       6       0       0  000000
 2      10       3       2       0       0       0       0       0
       3       0       1       0 0.000000000E+00 0.000000000E+00 0.000000000E+00
       1       2       3
 2      20       5       2       0       0       0       0       0
       4       0       1       0 0.000000000E+00 0.000000000E+00 0.000000000E+00
       1       2       3       4
 2      30       2       2       0       0       0       0       0
       2       0       1       0 0.000000000E+00 0.000000000E+00 0.000000000E+00
       1       5
99       0       0       1       0       0       0       0       0
`

func TestReadDefaultTypes(t *testing.T) {
	// the first header is shifted by one column
	m, err := Read(strings.NewReader(testNeutral))
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if len(m.Points) != 4 {
		t.Fatal("free point not removed, got points: ", len(m.Points))
	}

	if m.Points[3][2] != -1e-3 {
		t.Fatal("packed coordinate not parsed: ", m.Points[3])
	}

	if diff := cmp.Diff([][]int{{0, 1, 2}}, m.Cells[data.CellTriangle]); diff != "" {
		t.Fatal("triangles mismatch: ", diff)
	}

	if diff := cmp.Diff([][]int{{0, 1, 2, 3}}, m.Cells[data.CellTetra]); diff != "" {
		t.Fatal("tetras mismatch: ", diff)
	}

	if _, ok := m.Cells[data.CellLine]; ok {
		t.Fatal("line cells should be skipped")
	}

	if m.CellIDs[data.CellTetra][0] != 20 {
		t.Fatal("wrong tetra id")
	}
}

func TestReadSelectedTypes(t *testing.T) {
	m, err := Read(strings.NewReader(testNeutral), data.CellLine)
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if len(m.Points) != 2 {
		t.Fatal("expected 2 points, got: ", len(m.Points))
	}

	exp := map[int]int{1: 0, 5: 1}
	if diff := cmp.Diff(exp, m.PointIDs); diff != "" {
		t.Fatal("point ids mismatch: ", diff)
	}

	if m.Points[1] != [3]float64{5, 5, 5} {
		t.Fatal("wrong point: ", m.Points[1])
	}
}

func TestReadPackedHeader(t *testing.T) {
	packed := strings.Replace(testNeutral,
		" 1       5       0       2       0       0       0       0       0",
		" 112345678       0       2       0       0       0       0       0", 1)
	packed = strings.Replace(packed, "       1       5\n", "       112345678\n", 1)

	m, err := Read(strings.NewReader(packed), data.CellLine)
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if _, ok := m.PointIDs[12345678]; !ok {
		t.Fatal("packed node id not parsed: ", m.PointIDs)
	}
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(testNeutral), data.CellHexahedron)
	if !errors.Is(err, data.ErrNoMesh) {
		t.Fatal("expected ErrNoMesh, got: ", err)
	}

	bad := strings.Replace(testNeutral, "       1       2       3\n", "       1       2      77\n", 1)
	_, err = Read(strings.NewReader(bad))
	if !errors.Is(err, data.ErrParse) {
		t.Fatal("expected ErrParse for unknown node, got: ", err)
	}

	truncated := testNeutral[:strings.Index(testNeutral, "1G")]
	_, err = Read(strings.NewReader(truncated))
	if !errors.Is(err, data.ErrParse) {
		t.Fatal("expected ErrParse for truncated file, got: ", err)
	}
}
