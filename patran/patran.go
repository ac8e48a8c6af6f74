// Package patran reads meshes exported by studyrlt in the Patran neutral
// file format.
package patran

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mfauto/mfauto/data"
	"github.com/pkg/errors"
)

// packet types
const (
	packetNode    = 1
	packetElement = 2
	packetEnd     = 99
)

// DefaultCellTypes are the cell types kept when none are requested
var DefaultCellTypes = []data.CellType{data.CellTriangle, data.CellTetra}

var reFloat = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[EeDd][-+]?\d+)?`)

type header struct {
	it, id, iv, kc int
}

// ReadFile reads a Patran neutral file from disk
func ReadFile(path string, cellTypes ...data.CellType) (*data.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, cellTypes...)
}

// Read parses a Patran neutral file. Only nodes and the requested cell
// types are kept, other packets are skipped. Points not used by any kept
// cell are removed.
func Read(r io.Reader, cellTypes ...data.CellType) (*data.Mesh, error) {
	if len(cellTypes) == 0 {
		cellTypes = DefaultCellTypes
	}

	keep := make(map[data.CellType]bool)
	for _, ct := range cellTypes {
		keep[ct] = true
	}

	p := &parser{sc: bufio.NewScanner(r)}
	p.sc.Buffer(make([]byte, 64*1024), 1024*1024)

	mesh := data.NewMesh()

	// element connectivity is stored as node ids until all nodes are read
	elemNodes := make(map[data.CellType][][]int)

done:
	for {
		line, ok := p.next()
		if !ok {
			break
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		h, err := parseHeader(line)
		if err != nil {
			return nil, p.wrap(err)
		}

		switch h.it {
		case packetNode:
			cards, err := p.cards(h.kc)
			if err != nil {
				return nil, err
			}
			if len(cards) < 1 {
				return nil, p.errorf("node %v has no coordinate card", h.id)
			}
			coords := reFloat.FindAllString(cards[0], 3)
			if len(coords) != 3 {
				return nil, p.errorf("node %v: expected 3 coordinates", h.id)
			}
			var pt [3]float64
			for i, c := range coords {
				pt[i], err = parseFloat(c)
				if err != nil {
					return nil, p.wrap(err)
				}
			}
			mesh.PointIDs[h.id] = len(mesh.Points)
			mesh.Points = append(mesh.Points, pt)

		case packetElement:
			cards, err := p.cards(h.kc)
			if err != nil {
				return nil, err
			}
			ct, known := data.CellTypeFromPatran(h.iv)
			if !known || !keep[ct] {
				continue
			}
			if len(cards) < 2 {
				return nil, p.errorf("element %v: missing cards", h.id)
			}
			count, err := nodeCount(cards[0])
			if err != nil {
				return nil, p.errorf("element %v: bad node count", h.id)
			}

			var nodes []int
			for _, c := range cards[1:] {
				ids, err := fixedInts(c, 8)
				if err != nil {
					return nil, p.wrap(err)
				}
				nodes = append(nodes, ids...)
				if len(nodes) >= count {
					break
				}
			}
			if len(nodes) < count {
				return nil, p.errorf("element %v: expected %v nodes, got %v",
					h.id, count, len(nodes))
			}
			elemNodes[ct] = append(elemNodes[ct], nodes[:count])
			mesh.CellIDs[ct] = append(mesh.CellIDs[ct], h.id)

		case packetEnd:
			break done

		default:
			if _, err := p.cards(h.kc); err != nil {
				return nil, err
			}
		}
	}

	if err := p.sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading patran file")
	}

	for ct, elems := range elemNodes {
		cells := make([][]int, len(elems))
		for i, nodes := range elems {
			cell := make([]int, len(nodes))
			for j, id := range nodes {
				idx, ok := mesh.PointIDs[id]
				if !ok {
					return nil, errors.Wrapf(data.ErrParse,
						"element %v references unknown node %v", mesh.CellIDs[ct][i], id)
				}
				cell[j] = idx
			}
			cells[i] = cell
		}
		mesh.Cells[ct] = cells
	}

	if mesh.NumCells() == 0 {
		return nil, errors.Wrap(data.ErrNoMesh, "no cells of the requested types")
	}

	mesh.RemoveFreePoints()

	return mesh, nil
}

type parser struct {
	sc   *bufio.Scanner
	line int
}

func (p *parser) next() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	p.line++
	return p.sc.Text(), true
}

// cards reads the n data cards following a packet header
func (p *parser) cards(n int) ([]string, error) {
	ret := make([]string, 0, n)
	for i := 0; i < n; i++ {
		l, ok := p.next()
		if !ok {
			return nil, p.errorf("unexpected end of file")
		}
		ret = append(ret, l)
	}
	return ret, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(data.ErrParse, "line %v: "+format, append([]interface{}{p.line}, args...)...)
}

func (p *parser) wrap(err error) error {
	return errors.Wrapf(data.ErrParse, "line %v: %v", p.line, err)
}

// parseHeader parses a (I2,8I8) packet header card. Headers with nine
// whitespace separated fields are read as such, otherwise columns are used
// since large identifiers fill their whole column.
func parseHeader(line string) (header, error) {
	var h header

	f := strings.Fields(line)
	if len(f) == 9 {
		var v [4]int
		ok := true
		for i := range v {
			var err error
			v[i], err = strconv.Atoi(f[i])
			if err != nil {
				ok = false
				break
			}
		}
		if ok {
			h.it, h.id, h.iv, h.kc = v[0], v[1], v[2], v[3]
			return h, nil
		}
	}

	if len(line) > 2 {
		it, err := strconv.Atoi(strings.TrimSpace(line[:2]))
		vals, err2 := fixedInts(line[2:], 8)
		if err == nil && err2 == nil && len(vals) >= 3 {
			h.it, h.id, h.iv, h.kc = it, vals[0], vals[1], vals[2]
			return h, nil
		}
	}

	return h, errors.Errorf("invalid packet header: %q", line)
}

// fixedInts parses integers in columns of the given width. Empty columns
// are skipped. If the columns do not parse, whitespace separated fields
// are tried.
func fixedInts(line string, width int) ([]int, error) {
	var ret []int
	fixedOK := true
	for i := 0; i < len(line); i += width {
		end := i + width
		if end > len(line) {
			end = len(line)
		}
		s := strings.TrimSpace(line[i:end])
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			fixedOK = false
			break
		}
		ret = append(ret, v)
	}

	if fixedOK {
		return ret, nil
	}

	ret = ret[:0]
	for _, s := range strings.Fields(line) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Errorf("invalid integer %q", s)
		}
		ret = append(ret, v)
	}
	return ret, nil
}

// nodeCount returns the NODES field of an element data card (I8)
func nodeCount(card string) (int, error) {
	s := card
	if len(s) > 8 {
		s = s[:8]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err == nil {
		return n, nil
	}
	f := strings.Fields(card)
	if len(f) < 1 {
		return 0, errors.New("empty card")
	}
	return strconv.Atoi(f[0])
}

func parseFloat(s string) (float64, error) {
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	return strconv.ParseFloat(s, 64)
}
