// Package studymod modifies Moldflow study files (process parameters and
// material) with the studymod tool and maintains Moldflow project files.
package studymod

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/file"
	"github.com/mfauto/mfauto/moldflow"
)

type studyModXML struct {
	XMLName    xml.Name     `xml:"StudyMod"`
	Title      string       `xml:"title,attr"`
	Ver        string       `xml:"ver,attr"`
	UnitSystem string       `xml:"UnitSystem,omitempty"`
	Material   *materialXML `xml:"Material"`
	Property   *propertyXML `xml:"Property"`
}

type materialXML struct {
	ID int `xml:"ID,attr"`
}

type propertyXML struct {
	TSets []tsetXML `xml:"TSet"`
}

type tsetXML struct {
	ID     int        `xml:"ID"`
	SubID  int        `xml:"SubID"`
	TCodes []tcodeXML `xml:"TCode"`
}

type tcodeXML struct {
	ID          int      `xml:"ID"`
	Description string   `xml:"Description"`
	Values      []string `xml:"Value"`
}

// Modifier builds a studymod modifier for a study and applies it
type Modifier struct {
	Study  string
	Output string

	inst *moldflow.Install
	db   *Database
	log  *log.Logger
	doc  studyModXML
}

// NewModifier creates a modifier turning study into output
func NewModifier(inst *moldflow.Install, db *Database, study, output string) *Modifier {
	if db == nil {
		db = &Database{Materials: map[string]int{}}
	}

	m := &Modifier{
		Study:  study,
		Output: output,
		inst:   inst,
		db:     db,
		log:    inst.Logger("Studymod"),
		doc: studyModXML{
			Title: "Autodesk StudyMod",
			Ver:   "1.00",
		},
	}

	if inst.Units != "" {
		m.doc.UnitSystem = inst.Units
	}

	return m
}

// AddParameter sets a process parameter. Each value becomes one value
// line of the TCode.
func (m *Modifier) AddParameter(name string, values ...Value) error {
	set, code, ok := m.db.Parameter(name)
	if !ok {
		return fmt.Errorf("Unable to find %v in the parameter database: %w", name, data.ErrUnknownParameter)
	}

	tc := tcodeXML{ID: code, Description: name}
	for _, v := range values {
		tc.Values = append(tc.Values, v.String())
	}

	if m.doc.Property == nil {
		m.doc.Property = &propertyXML{}
	}

	m.doc.Property.TSets = append(m.doc.Property.TSets, tsetXML{
		ID:     set.ID,
		SubID:  1,
		TCodes: []tcodeXML{tc},
	})

	return nil
}

// DefineMaterial sets the injected material
func (m *Modifier) DefineMaterial(name string) error {
	id, ok := m.db.Materials[name]
	if !ok {
		return fmt.Errorf("Unable to find %v in the material database: %w", name, data.ErrUnknownMaterial)
	}
	m.doc.Material = &materialXML{ID: id}
	return nil
}

// XML returns the modifier document
func (m *Modifier) XML() ([]byte, error) {
	out, err := xml.MarshalIndent(m.doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(append([]byte(xml.Header), out...), '\n'), nil
}

// WriteOptions control Write
type WriteOptions struct {
	// ExportModifier keeps the modifier next to the output as <output>.xml
	ExportModifier bool
	// ProjectFile, if set, is created or updated to list the output study
	ProjectFile string
}

// ModifierPath returns where an exported modifier is written
func (m *Modifier) ModifierPath() string {
	return moldflow.ReplaceExt(m.Output, ".xml")
}

// Write applies the modifier to the study and writes the output study
func (m *Modifier) Write(ctx context.Context, o WriteOptions) error {
	if m.Output == "" {
		return fmt.Errorf("no output study given")
	}

	if !file.Exists(m.Study) {
		return fmt.Errorf("study %v: %w", m.Study, data.ErrNotFound)
	}

	doc, err := m.XML()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.Output), 0755); err != nil {
		return err
	}

	var modifier string
	if o.ExportModifier {
		modifier = m.ModifierPath()
		if err := os.WriteFile(modifier, doc, 0644); err != nil {
			return err
		}
	} else {
		f, err := os.CreateTemp("", "studymod-*.xml")
		if err != nil {
			return err
		}
		modifier = f.Name()
		defer os.Remove(modifier)
		_, err = f.Write(doc)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}

	m.log.Printf("Modifying %v -> %v", filepath.Base(m.Study), filepath.Base(m.Output))

	out, err := m.inst.Output(ctx, m.inst.StudyMod, m.Study, m.Output, modifier)
	if err != nil {
		return err
	}

	if err := moldflow.CheckOutput(m.inst.StudyMod, out, moldflow.BannerAutodesk); err != nil {
		return err
	}

	moldflow.CleanupScratch(m.Study)

	if !file.Exists(m.Output) {
		return fmt.Errorf("Unable to generate output file with %v: %w",
			moldflow.CommandLine(m.inst.StudyMod, m.Study, m.Output, modifier), data.ErrNoOutput)
	}

	if o.ProjectFile != "" {
		if err := WriteProject(o.ProjectFile, m.Output); err != nil {
			return fmt.Errorf("Error writing project file: %w", err)
		}
	}

	return nil
}

// Check verifies that studymod starts and prints its banner
func (m *Modifier) Check(ctx context.Context) error {
	return Check(ctx, m.inst)
}

// Check verifies that studymod of an installation works
func Check(ctx context.Context, inst *moldflow.Install) error {
	out, err := inst.Output(ctx, inst.StudyMod)
	if err != nil {
		return err
	}
	return moldflow.CheckOutput(inst.StudyMod, out, moldflow.BannerAutodesk)
}
