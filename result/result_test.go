package result

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mfauto/mfauto/data"
)

var nodeResultXML = "<?xml version=\"1.0\" encoding=\"windows-1252\"?>\n" + `<Moldflow>
  <UnitSystem>Metric</UnitSystem>
  <Dataset ID="1610" Name=" Temperature ">
    <DataType>NDDT(Node data)</DataType>
    <DeptVar Name="Temperature" Unit="` + "\xb0C" + `"/>
    <NumberOfComponents>1</NumberOfComponents>
    <Blocks>
      <Block>
        <IndpVar Name="Time" Unit="s" Value="0.5"/>
        <NumberOfNodes>2</NumberOfNodes>
        <Data>
          <NodeData ID="1"><DeptValues>200.0</DeptValues></NodeData>
          <NodeData ID="2"><DeptValues>1.0E+30</DeptValues></NodeData>
        </Data>
      </Block>
      <Block>
        <IndpVar Name="Time" Unit="s" Value="1.25"/>
        <NumberOfNodes>2</NumberOfNodes>
        <Data>
          <NodeData ID="1"><DeptValues>180.0</DeptValues></NodeData>
          <NodeData ID="2"><DeptValues>170.0</DeptValues></NodeData>
        </Data>
      </Block>
    </Blocks>
  </Dataset>
</Moldflow>
`

var tensorResultXML = `<?xml version="1.0"?>
<Moldflow>
  <Dataset Name="Fiber orientation tensor">
    <DataType>ELDT(Element data)</DataType>
    <DeptVar Name="Orientation" Unit=""/>
    <NumberOfComponents>6</NumberOfComponents>
    <Blocks>
      <Block>
        <Data>
          <ElementData ID="7"><DeptValues>0.1 0.2 0.3 0.4 0.5 0.6</DeptValues></ElementData>
        </Data>
      </Block>
    </Blocks>
  </Dataset>
</Moldflow>
`

var nonMeshResultXML = `<?xml version="1.0"?>
<Moldflow>
  <Dataset Name="Pressure at injection location:XY Plot">
    <DataType>NMDT(Non-mesh data)</DataType>
    <DeptVar Name="Pressure" Unit="MPa"/>
    <NumberOfComponents>1</NumberOfComponents>
    <Blocks>
      <Block>
        <IndpVar Name="Time" Value="0.1"/>
        <Filler/>
        <DeptValues>12.5</DeptValues>
      </Block>
      <Block>
        <IndpVar Name="Time" Value="0.2"/>
        <Filler/>
        <DeptValues>25.0</DeptValues>
      </Block>
    </Blocks>
  </Dataset>
</Moldflow>
`

func TestReadTimeSeries(t *testing.T) {
	res, err := ReadXML(strings.NewReader(nodeResultXML), false)
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if res.Name != "Temperature" || res.Kind != data.ResultNodeData || res.Unit != "°C" {
		t.Fatalf("wrong header: %+v", res)
	}

	if diff := cmp.Diff([]float64{0.5, 1.25}, res.Times); diff != "" {
		t.Fatal("times mismatch: ", diff)
	}

	if len(res.Steps) != 2 {
		t.Fatal("expected 2 steps, got: ", len(res.Steps))
	}

	if !math.IsNaN(res.Steps[0][2][0]) {
		t.Fatal("undefined value should be NaN")
	}

	if !res.TimeSeries() {
		t.Fatal("result should be a time series")
	}
}

func TestReadLastStep(t *testing.T) {
	res, err := ReadXML(strings.NewReader(nodeResultXML), true)
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if res.Times != nil {
		t.Fatal("times should be nil for last step only")
	}

	exp := []map[int][]float64{{1: {180}, 2: {170}}}
	if diff := cmp.Diff(exp, res.Steps); diff != "" {
		t.Fatal("steps mismatch: ", diff)
	}
}

func TestReadTensor(t *testing.T) {
	res, err := ReadXML(strings.NewReader(tensorResultXML), false)
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if res.Components != 6 || res.Times != nil || res.TimeSeries() {
		t.Fatalf("wrong result: %+v", res)
	}

	if diff := cmp.Diff([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, res.Steps[0][7]); diff != "" {
		t.Fatal("values mismatch: ", diff)
	}
}

func TestReadNonMesh(t *testing.T) {
	res, err := ReadXML(strings.NewReader(nonMeshResultXML), true)
	if err != nil {
		t.Fatal("read failed: ", err)
	}

	if res.Kind != data.ResultNonMesh {
		t.Fatal("wrong kind: ", res.Kind)
	}

	exp := &data.Result{
		Name:       "Pressure at injection location:XY Plot",
		Kind:       data.ResultNonMesh,
		Unit:       "MPa",
		Components: 1,
		Times:      []float64{0.1, 0.2},
		Series:     [][]float64{{12.5}, {25}},
	}

	if diff := cmp.Diff(exp, res, cmpopts.EquateEmpty()); diff != "" {
		t.Fatal("result mismatch: ", diff)
	}
}

func TestReadEncoding(t *testing.T) {
	body := strings.SplitN(nodeResultXML, "\n", 2)[1]

	tests := map[string]string{
		"declared":   nodeResultXML,
		"undeclared": body,
		"utf-8":      "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" + body,
	}

	for name, in := range tests {
		res, err := ReadXML(strings.NewReader(in), false)
		if err != nil {
			t.Errorf("%v: read failed: %v", name, err)
			continue
		}

		if res.Unit != "\u00b0C" {
			t.Errorf("%v: wrong unit: %q", name, res.Unit)
		}
	}
}

func TestReadErrors(t *testing.T) {
	tests := map[string]string{
		"not xml":       "garbage <<",
		"no data type":  `<Moldflow><Dataset Name="x"></Dataset></Moldflow>`,
		"no blocks":     `<Moldflow><Dataset Name="x"><DataType>NDDT(Node data)</DataType><NumberOfComponents>1</NumberOfComponents></Dataset></Moldflow>`,
		"bad component": `<Moldflow><Dataset Name="x"><DataType>NDDT(Node data)</DataType><NumberOfComponents>a</NumberOfComponents></Dataset></Moldflow>`,
		"bad value":     strings.Replace(tensorResultXML, "0.1 0.2", "x 0.2", 1),
	}

	for name, in := range tests {
		_, err := ReadXML(strings.NewReader(in), false)
		if !errors.Is(err, data.ErrParse) {
			t.Errorf("%v: expected ErrParse, got: %v", name, err)
		}
	}
}
