// Package pipeline describes Moldflow work (modify, run, export) in YAML
// files and executes it.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mfauto/mfauto/meshio"
	"github.com/mfauto/mfauto/studymod"
)

// Spec is a pipeline file
type Spec struct {
	// Moldflow is the installation directory, defaults to the one of the
	// environment
	Moldflow string `yaml:"moldflow,omitempty" json:"moldflow,omitempty"`
	Study    string `yaml:"study" json:"study"`
	// Output is the modified study, required with Modify
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	// Metric asks the tools for metric units, defaults to true
	Metric *bool   `yaml:"metric,omitempty" json:"metric,omitempty"`
	Modify *Modify `yaml:"modify,omitempty" json:"modify,omitempty"`
	Run    bool    `yaml:"run,omitempty" json:"run,omitempty"`
	Export *Export `yaml:"export,omitempty" json:"export,omitempty"`
}

// Modify describes changes to the study
type Modify struct {
	Material       string      `yaml:"material,omitempty" json:"material,omitempty"`
	Parameters     []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Project        string      `yaml:"project,omitempty" json:"project,omitempty"`
	ExportModifier bool        `yaml:"exportModifier,omitempty" json:"exportModifier,omitempty"`
}

// Parameter is a process parameter set by Modify
type Parameter struct {
	Name  string          `yaml:"name" json:"name"`
	Value studymod.Values `yaml:"value" json:"value"`
}

// Export describes what to export from the analysed study
type Export struct {
	Dir     string   `yaml:"dir,omitempty" json:"dir,omitempty"`
	File    string   `yaml:"file,omitempty" json:"file,omitempty"`
	Log     bool     `yaml:"log,omitempty" json:"log,omitempty"`
	Mesh    *Mesh    `yaml:"mesh,omitempty" json:"mesh,omitempty"`
	Results []Result `yaml:"results,omitempty" json:"results,omitempty"`
}

// Mesh export options
type Mesh struct {
	Formats []string `yaml:"formats,omitempty" json:"formats,omitempty"`
	RawOnly bool     `yaml:"rawOnly,omitempty" json:"rawOnly,omitempty"`
}

// Result export options
type Result struct {
	ID       int    `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	AllSteps bool   `yaml:"allSteps,omitempty" json:"allSteps,omitempty"`
	NPY      bool   `yaml:"npy,omitempty" json:"npy,omitempty"`
	RawOnly  bool   `yaml:"rawOnly,omitempty" json:"rawOnly,omitempty"`
}

// Load reads a pipeline file. Relative paths are resolved against the
// directory of the file.
func Load(path string) (*Spec, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	s.Resolve(dir)
	return s, nil
}

// Parse decodes a pipeline
func Parse(buf []byte) (*Spec, error) {
	var s Spec
	if err := yaml.UnmarshalWithOptions(buf, &s, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("Error decoding pipeline: %v", err)
	}
	return &s, nil
}

// Marshal encodes a pipeline
func (s *Spec) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Resolve makes relative paths absolute against dir
func (s *Spec) Resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	abs(&s.Moldflow)
	abs(&s.Study)
	abs(&s.Output)
	if s.Modify != nil {
		abs(&s.Modify.Project)
	}
	if s.Export != nil {
		abs(&s.Export.Dir)
		abs(&s.Export.File)
	}
}

// UseMetric returns true if the tools are asked for metric units
func (s *Spec) UseMetric() bool {
	return s.Metric == nil || *s.Metric
}

// Target returns the study run and exported: the output of Modify if
// set, else the input study
func (s *Spec) Target() string {
	if s.Modify != nil {
		return s.Output
	}
	return s.Study
}

// Validate checks a pipeline before anything runs
func (s *Spec) Validate() error {
	if s.Study == "" {
		return fmt.Errorf("study not set")
	}

	if !strings.EqualFold(filepath.Ext(s.Study), ".sdy") {
		return fmt.Errorf("study must be a .sdy file: %v", s.Study)
	}

	if s.Modify == nil && !s.Run && s.Export == nil {
		return fmt.Errorf("nothing to do, set modify, run or export")
	}

	if s.Modify != nil {
		if s.Output == "" {
			return fmt.Errorf("modify requires an output study")
		}
		if filepath.Clean(s.Output) == filepath.Clean(s.Study) {
			return fmt.Errorf("output must differ from study")
		}
		if s.Modify.Material == "" && len(s.Modify.Parameters) == 0 {
			return fmt.Errorf("modify sets no material or parameter")
		}
		for i, p := range s.Modify.Parameters {
			if p.Name == "" {
				return fmt.Errorf("parameter %v has no name", i)
			}
			if len(p.Value) == 0 {
				return fmt.Errorf("parameter %v has no value", p.Name)
			}
		}
	}

	if e := s.Export; e != nil {
		if e.Mesh != nil {
			for _, f := range e.Mesh.Formats {
				if !meshio.SupportedFormat(f) {
					return fmt.Errorf("unsupported mesh format: %v", f)
				}
			}
		}

		if e.File != "" && !meshio.SupportedFormat(strings.TrimPrefix(filepath.Ext(e.File), ".")) {
			return fmt.Errorf("unsupported output file format: %v", e.File)
		}

		names := make(map[string]bool)
		for _, r := range e.Results {
			if r.ID <= 0 {
				return fmt.Errorf("result %q has no id", r.Name)
			}
			if r.Name == "" {
				return fmt.Errorf("result %v has no name", r.ID)
			}
			if names[r.Name] {
				return fmt.Errorf("duplicate result name: %v", r.Name)
			}
			names[r.Name] = true
		}
	}

	return nil
}
