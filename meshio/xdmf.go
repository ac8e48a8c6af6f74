package meshio

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mfauto/mfauto/data"
)

// TimeSeparator separates a field name from its time in time dependent
// field names, for example "Pressure__1.2500"
const TimeSeparator = "__"

var xdmfTopologies = map[data.CellType]string{
	data.CellLine:       "Polyline",
	data.CellTriangle:   "Triangle",
	data.CellQuad:       "Quadrilateral",
	data.CellTetra:      "Tetrahedron",
	data.CellHexahedron: "Hexahedron",
}

type xdmfFile struct {
	XMLName xml.Name   `xml:"Xdmf"`
	Version string     `xml:"Version,attr"`
	Domain  xdmfDomain `xml:"Domain"`
}

type xdmfDomain struct {
	Grids []xdmfGrid `xml:"Grid"`
}

type xdmfGrid struct {
	Name           string          `xml:"Name,attr"`
	GridType       string          `xml:"GridType,attr,omitempty"`
	CollectionType string          `xml:"CollectionType,attr,omitempty"`
	Time           *xdmfTime       `xml:"Time"`
	Geometry       *xdmfGeometry   `xml:"Geometry"`
	Topology       *xdmfTopology   `xml:"Topology"`
	Attributes     []xdmfAttribute `xml:"Attribute"`
	Grids          []xdmfGrid      `xml:"Grid"`
}

type xdmfTime struct {
	Value string `xml:"Value,attr"`
}

type xdmfGeometry struct {
	GeometryType string       `xml:"GeometryType,attr"`
	DataItem     xdmfDataItem `xml:"DataItem"`
}

type xdmfTopology struct {
	TopologyType     string       `xml:"TopologyType,attr"`
	NumberOfElements string       `xml:"NumberOfElements,attr"`
	NodesPerElement  string       `xml:"NodesPerElement,attr,omitempty"`
	DataItem         xdmfDataItem `xml:"DataItem"`
}

type xdmfAttribute struct {
	Name          string       `xml:"Name,attr"`
	AttributeType string       `xml:"AttributeType,attr"`
	Center        string       `xml:"Center,attr"`
	DataItem      xdmfDataItem `xml:"DataItem"`
}

type xdmfDataItem struct {
	DataType   string `xml:"DataType,attr"`
	Dimensions string `xml:"Dimensions,attr"`
	Format     string `xml:"Format,attr"`
	Precision  string `xml:"Precision,attr"`
	Text       string `xml:",chardata"`
}

func writeXDMF(w *bufio.Writer, m *data.Mesh) error {
	ct, err := activeType(m)
	if err != nil {
		return err
	}
	cells := m.Cells[ct]

	var sb strings.Builder
	sb.WriteString("\n")
	for _, p := range m.Points {
		fmt.Fprintf(&sb, "%v %v %v\n", formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]))
	}
	geometry := &xdmfGeometry{
		GeometryType: "XYZ",
		DataItem: xdmfDataItem{
			DataType:   "Float",
			Dimensions: fmt.Sprintf("%v 3", len(m.Points)),
			Format:     "XML",
			Precision:  "8",
			Text:       sb.String(),
		},
	}

	sb.Reset()
	sb.WriteString("\n")
	for _, c := range cells {
		for j, p := range c {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(p))
		}
		sb.WriteByte('\n')
	}
	topology := &xdmfTopology{
		TopologyType:     xdmfTopologies[ct],
		NumberOfElements: strconv.Itoa(len(cells)),
		DataItem: xdmfDataItem{
			DataType:   "Int",
			Dimensions: fmt.Sprintf("%v %v", len(cells), ct.NumNodes()),
			Format:     "XML",
			Precision:  "8",
			Text:       sb.String(),
		},
	}
	if ct == data.CellLine {
		topology.NodesPerElement = "2"
	}

	grid := xdmfGrid{
		Name:     "Grid",
		Geometry: geometry,
		Topology: topology,
	}

	for _, f := range m.PointData {
		if f.Len() != len(m.Points) {
			return fmt.Errorf("point field %v has %v entries for %v points", f.Name, f.Len(), len(m.Points))
		}
		grid.Attributes = append(grid.Attributes, xdmfFieldAttribute(f, "Node"))
	}

	for _, f := range m.CellData {
		if f.Len() != len(cells) {
			return fmt.Errorf("cell field %v has %v entries for %v cells", f.Name, f.Len(), len(cells))
		}
		grid.Attributes = append(grid.Attributes, xdmfFieldAttribute(f, "Cell"))
	}

	return encodeXDMF(w, &xdmfFile{Version: "3.0", Domain: xdmfDomain{Grids: []xdmfGrid{grid}}})
}

func xdmfFieldAttribute(f data.Field, center string) xdmfAttribute {
	var sb strings.Builder
	sb.WriteString("\n")
	n := f.Len()
	for i := 0; i < n; i++ {
		for j, v := range f.At(i) {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatFloat(v))
		}
		sb.WriteByte('\n')
	}

	dims := strconv.Itoa(n)
	if f.Components > 1 {
		dims = fmt.Sprintf("%v %v", n, f.Components)
	}

	return xdmfAttribute{
		Name:          f.Name,
		AttributeType: xdmfAttributeType(f.Components),
		Center:        center,
		DataItem: xdmfDataItem{
			DataType:   "Float",
			Dimensions: dims,
			Format:     "XML",
			Precision:  "8",
			Text:       sb.String(),
		},
	}
}

func xdmfAttributeType(components int) string {
	switch components {
	case 1:
		return "Scalar"
	case 3:
		return "Vector"
	case 6:
		return "Tensor6"
	case 9:
		return "Tensor"
	}
	return "Matrix"
}

func encodeXDMF(w *bufio.Writer, x *xdmfFile) error {
	if _, err := w.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(x); err != nil {
		return err
	}
	_, err := w.WriteString("\n")
	return err
}

// ConvertTimeSeries rewrites an XDMF file whose attributes are named
// <field>__<time> into a temporal collection readable by ParaView. Each
// time grid holds every field: a time dependent field contributes its
// value at that time, or at the latest earlier time, or its first time
// when it starts later. Fields without time are repeated in every grid.
// Files without time dependent fields are left unchanged.
func ConvertTimeSeries(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var x xdmfFile
	if err := xml.Unmarshal(buf, &x); err != nil {
		return fmt.Errorf("Error decoding %v: %w", path, err)
	}

	base := findUniformGrid(x.Domain.Grids)
	if base == nil {
		return fmt.Errorf("no grid with geometry in %v", path)
	}

	// unique field names in order of appearance
	var fields []string
	seen := make(map[string]bool)
	// times for each field, in order of appearance
	fieldTimes := make(map[string][]string)
	var times []string
	timeSeen := make(map[string]bool)
	attrs := make(map[string]xdmfAttribute)

	for _, a := range base.Attributes {
		attrs[a.Name] = a
		name, t, timed := splitTimeName(a.Name)
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
		if !timed {
			continue
		}
		fieldTimes[name] = append(fieldTimes[name], t)
		if !timeSeen[t] {
			timeSeen[t] = true
			times = append(times, t)
		}
	}

	if len(times) == 0 {
		return nil
	}

	sort.SliceStable(times, func(i, j int) bool {
		return parseTime(times[i]) < parseTime(times[j])
	})

	series := xdmfGrid{
		Name:           "TimeSeries",
		GridType:       "Collection",
		CollectionType: "Temporal",
	}

	for _, t := range times {
		g := xdmfGrid{
			Name:     "Moldflow results",
			GridType: "Uniform",
			Time:     &xdmfTime{Value: t},
			Geometry: base.Geometry,
			Topology: base.Topology,
		}
		for _, name := range fields {
			a, ok := attributeAt(attrs, name, fieldTimes[name], t)
			if ok {
				g.Attributes = append(g.Attributes, a)
			}
		}
		series.Grids = append(series.Grids, g)
	}

	x.Domain.Grids = []xdmfGrid{series}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	err = encodeXDMF(w, &x)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func attributeAt(attrs map[string]xdmfAttribute, name string, fieldTimes []string, t string) (xdmfAttribute, bool) {
	if len(fieldTimes) == 0 {
		a, ok := attrs[name]
		return a, ok
	}

	use := ""
	for _, ft := range fieldTimes {
		if ft == t {
			use = t
			break
		}
	}

	if use == "" {
		best := ""
		for _, ft := range fieldTimes {
			if parseTime(ft) < parseTime(t) && (best == "" || parseTime(ft) > parseTime(best)) {
				best = ft
			}
		}
		use = best
	}

	if use == "" {
		use = fieldTimes[0]
	}

	a, ok := attrs[name+TimeSeparator+use]
	a.Name = name
	return a, ok
}

func findUniformGrid(grids []xdmfGrid) *xdmfGrid {
	for i := range grids {
		if grids[i].Geometry != nil && grids[i].Topology != nil {
			return &grids[i]
		}
		if g := findUniformGrid(grids[i].Grids); g != nil {
			return g
		}
	}
	return nil
}

// TimeName returns the name of a field at a given time
func TimeName(name string, t float64) string {
	return fmt.Sprintf("%v%v%.4f", name, TimeSeparator, t)
}

func splitTimeName(s string) (string, string, bool) {
	parts := strings.Split(s, TimeSeparator)
	if len(parts) < 2 {
		return s, "", false
	}
	return parts[0], parts[1], true
}

func parseTime(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
