package data

import "strings"

// ResultKind is the Moldflow data type of a result
type ResultKind string

// Result kinds as written in the DataType element of studyrlt XML exports
const (
	ResultNodeData    ResultKind = "NDDT(Node data)"
	ResultElementData ResultKind = "ELDT(Element data)"
	ResultNonMesh     ResultKind = "NMDT(Non-mesh data)"
)

// IsMesh returns true if the result is defined on mesh nodes or elements
func (k ResultKind) IsMesh() bool {
	return k == ResultNodeData || k == ResultElementData
}

// Result is a simulation result decoded from a studyrlt XML export
type Result struct {
	Name       string
	Kind       ResultKind
	Unit       string
	Components int

	// Times of each step. Nil for mesh results with a single step or
	// when only the last step was read. Always set for non-mesh results.
	Times []float64

	// Steps holds, for mesh results, node or element identifiers mapped
	// to their values, one map per step.
	Steps []map[int][]float64

	// Series holds, for non-mesh results, one row of Components values
	// per time.
	Series [][]float64
}

// TimeSeries returns true if the mesh result has several steps
func (r *Result) TimeSeries() bool {
	return r.Kind.IsMesh() && r.Times != nil
}

// IOName converts a result name into a name usable for files
func IOName(name string) string {
	r := strings.NewReplacer(" ", "_", "/", "", ",", "")
	return r.Replace(strings.ToLower(name))
}
