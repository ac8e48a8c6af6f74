// Package result decodes simulation results exported by studyrlt with the
// -xml option.
package result

import (
	"encoding/xml"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mfauto/mfauto/data"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Values above this threshold are used by Moldflow for undefined entries
const undefinedThreshold = 1e29

type xmlBlock struct {
	Items []xmlBlockItem `xml:",any"`
}

type xmlBlockItem struct {
	XMLName xml.Name
	Value   *string    `xml:"Value,attr"`
	Text    string     `xml:",chardata"`
	Entries []xmlEntry `xml:",any"`
}

type xmlEntry struct {
	ID         string `xml:"ID,attr"`
	DeptValues string `xml:"DeptValues"`
}

// ReadFile reads a studyrlt XML export from disk
func ReadFile(path string, lastStepOnly bool) (*data.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadXML(f, lastStepOnly)
}

// ReadXML decodes a studyrlt XML export. For mesh results with several
// steps, lastStepOnly keeps only the final step. The time of a step is the
// Value attribute of the closest preceding element of its block, NaN if
// there is none. studyrlt writes windows-1252 whatever the file declares.
func ReadXML(r io.Reader, lastStepOnly bool) (*data.Result, error) {
	d := xml.NewDecoder(charmap.Windows1252.NewDecoder().Reader(r))
	d.CharsetReader = charsetReader

	res := &data.Result{}
	var stack []xml.StartElement
	var haveComponents bool

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(data.ErrParse, "decoding result xml: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "DataType":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, errors.Wrapf(data.ErrParse, "DataType: %v", err)
				}
				res.Kind = data.ResultKind(strings.TrimSpace(s))
				if len(stack) > 0 {
					res.Name = strings.TrimSpace(attr(stack[len(stack)-1], "Name"))
				}
				continue

			case "DeptVar":
				res.Unit = attr(t, "Unit")

			case "NumberOfComponents":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, errors.Wrapf(data.ErrParse, "NumberOfComponents: %v", err)
				}
				res.Components, err = strconv.Atoi(strings.TrimSpace(s))
				if err != nil || res.Components < 1 {
					return nil, errors.Wrapf(data.ErrParse, "invalid number of components: %q", s)
				}
				haveComponents = true
				continue

			case "Block":
				if res.Kind == "" || !haveComponents {
					return nil, errors.Wrap(data.ErrParse, "data block before result header")
				}
				var b xmlBlock
				if err := d.DecodeElement(&b, &t); err != nil {
					return nil, errors.Wrapf(data.ErrParse, "Block: %v", err)
				}
				if err := readBlock(res, b); err != nil {
					return nil, err
				}
				continue
			}
			stack = append(stack, t)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if res.Kind == "" {
		return nil, errors.Wrap(data.ErrParse, "no DataType found")
	}

	if !res.Kind.IsMesh() {
		return res, nil
	}

	if len(res.Steps) == 0 {
		return nil, errors.Wrap(data.ErrParse, "no data blocks found")
	}

	if lastStepOnly {
		res.Steps = res.Steps[len(res.Steps)-1:]
	}

	if len(res.Steps) <= 1 {
		res.Times = nil
	} else {
		res.Times = res.Times[len(res.Times)-len(res.Steps):]
	}

	return res, nil
}

func readBlock(res *data.Result, b xmlBlock) error {
	t := math.NaN()
	for _, it := range b.Items {
		switch {
		case it.XMLName.Local == "Data" && res.Kind.IsMesh():
			step := make(map[int][]float64, len(it.Entries))
			for _, e := range it.Entries {
				id, err := strconv.Atoi(strings.TrimSpace(e.ID))
				if err != nil {
					return errors.Wrapf(data.ErrParse, "invalid id %q", e.ID)
				}
				v, err := parseValues(e.DeptValues, res.Components)
				if err != nil {
					return err
				}
				step[id] = v
			}
			res.Steps = append(res.Steps, step)
			res.Times = append(res.Times, t)

		case it.XMLName.Local == "DeptValues" && !res.Kind.IsMesh():
			v, err := parseValues(it.Text, res.Components)
			if err != nil {
				return err
			}
			res.Series = append(res.Series, v)
			res.Times = append(res.Times, t)
		}

		if it.Value != nil {
			t = parseTime(*it.Value)
		}
	}
	return nil
}

// parseValues reads count whitespace separated values, missing values
// are NaN
func parseValues(s string, count int) ([]float64, error) {
	f := strings.Fields(s)
	ret := make([]float64, count)
	for i := range ret {
		if i >= len(f) {
			ret[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return nil, errors.Wrapf(data.ErrParse, "invalid value %q", f[i])
		}
		if v > undefinedThreshold {
			v = math.NaN()
		}
		ret[i] = v
	}
	return ret, nil
}

func parseTime(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// charsetReader ignores the declared encoding, the input is already
// decoded from windows-1252
func charsetReader(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}
