package data

import (
	"fmt"
	"math"
)

// Field is a named array of values defined on mesh points or cells.
// Values are stored row by row, Components values per entry.
// Missing values are NaN.
type Field struct {
	Name       string
	Components int
	Values     []float64
}

// NewField returns a field of n entries filled with NaN
func NewField(name string, n, components int) Field {
	if components < 1 {
		components = 1
	}
	v := make([]float64, n*components)
	for i := range v {
		v[i] = math.NaN()
	}
	return Field{Name: name, Components: components, Values: v}
}

// Len returns the number of entries
func (f Field) Len() int {
	if f.Components < 1 {
		return 0
	}
	return len(f.Values) / f.Components
}

// At returns the values of entry i. The returned slice aliases the field.
func (f Field) At(i int) []float64 {
	return f.Values[i*f.Components : (i+1)*f.Components]
}

// Set copies v into entry i. Extra values are ignored.
func (f Field) Set(i int, v []float64) {
	copy(f.At(i), v)
}

// Reorder returns a copy of the field with components permuted,
// component j of the result is component perm[j] of f.
func (f Field) Reorder(perm []int) (Field, error) {
	if len(perm) != f.Components {
		return Field{}, fmt.Errorf("permutation of %v components on field with %v",
			len(perm), f.Components)
	}

	ret := Field{Name: f.Name, Components: f.Components, Values: make([]float64, len(f.Values))}
	n := f.Len()
	for i := 0; i < n; i++ {
		src := f.At(i)
		dst := ret.At(i)
		for j, p := range perm {
			dst[j] = src[p]
		}
	}
	return ret, nil
}

// Rename returns a copy of the field header with a new name.
// Values are shared.
func (f Field) Rename(name string) Field {
	f.Name = name
	return f
}
