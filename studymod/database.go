package studymod

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// setIDKey is the key holding the TCode set identifier in a set
const setIDKey = "ID"

// TCodeSet is a group of process parameters (TCodes) studymod edits
// together
type TCodeSet struct {
	Name  string
	ID    int
	Codes map[string]int
}

// Database maps parameter and material names to Moldflow identifiers
type Database struct {
	Sets      []TCodeSet
	Materials map[string]int
}

// LoadDatabase reads the TCode and material databases. Either path may be
// empty.
func LoadDatabase(tcodesPath, materialsPath string) (*Database, error) {
	var tcodes, materials []byte
	var err error

	if tcodesPath != "" {
		tcodes, err = os.ReadFile(tcodesPath)
		if err != nil {
			return nil, fmt.Errorf("Error reading TCode database: %w", err)
		}
	}

	if materialsPath != "" {
		materials, err = os.ReadFile(materialsPath)
		if err != nil {
			return nil, fmt.Errorf("Error reading material database: %w", err)
		}
	}

	return ParseDatabase(tcodes, materials)
}

// ParseDatabase decodes YAML databases. The TCode database maps set names
// to a map holding the set ID under the "ID" key and parameter names to
// TCode identifiers. The material database maps material names to
// identifiers. Set order of the file is kept.
func ParseDatabase(tcodes, materials []byte) (*Database, error) {
	db := &Database{Materials: make(map[string]int)}

	if len(tcodes) > 0 {
		var order yaml.MapSlice
		if err := yaml.Unmarshal(tcodes, &order); err != nil {
			return nil, fmt.Errorf("Error decoding TCode database: %w", err)
		}

		var sets map[string]map[string]int
		if err := yaml.Unmarshal(tcodes, &sets); err != nil {
			return nil, fmt.Errorf("Error decoding TCode database: %w", err)
		}

		for _, item := range order {
			name := fmt.Sprint(item.Key)
			codes := sets[name]
			id, ok := codes[setIDKey]
			if !ok {
				return nil, fmt.Errorf("TCode set %q has no %v", name, setIDKey)
			}
			set := TCodeSet{Name: name, ID: id, Codes: make(map[string]int)}
			for k, v := range codes {
				if k != setIDKey {
					set.Codes[k] = v
				}
			}
			db.Sets = append(db.Sets, set)
		}
	}

	if len(materials) > 0 {
		if err := yaml.Unmarshal(materials, &db.Materials); err != nil {
			return nil, fmt.Errorf("Error decoding material database: %w", err)
		}
	}

	return db, nil
}

// Parameter finds the set holding a parameter
func (db *Database) Parameter(name string) (TCodeSet, int, bool) {
	for _, s := range db.Sets {
		if code, ok := s.Codes[name]; ok {
			return s, code, true
		}
	}
	return TCodeSet{}, 0, false
}

// Parameters returns all parameter names, sorted
func (db *Database) Parameters() []string {
	var ret []string
	for _, s := range db.Sets {
		for name := range s.Codes {
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret
}

// Value is one value line of a parameter, vectors are written space
// separated
type Value []float64

// String formats the value in plain decimal notation, studymod does not
// read exponents
func (v Value) String() string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	return strings.Join(s, " ")
}

// Values is the value of a parameter. In YAML it is a number, a list of
// numbers (one value line each) or a list of lists (vector lines).
type Values []Value

// UnmarshalYAML implements yaml.InterfaceUnmarshaler
func (v *Values) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var scalar float64
	if err := unmarshal(&scalar); err == nil {
		*v = Values{{scalar}}
		return nil
	}

	var list []float64
	if err := unmarshal(&list); err == nil {
		ret := make(Values, len(list))
		for i, x := range list {
			ret[i] = Value{x}
		}
		*v = ret
		return nil
	}

	var lists [][]float64
	if err := unmarshal(&lists); err != nil {
		return fmt.Errorf("parameter value must be a number, a list of numbers or a list of lists")
	}
	ret := make(Values, len(lists))
	for i, l := range lists {
		ret[i] = Value(l)
	}
	*v = ret
	return nil
}
