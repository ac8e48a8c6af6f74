// Package studyrlt exports meshes, logs and results of analysed Moldflow
// studies with the studyrlt tool and converts them to open formats.
package studyrlt

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/file"
	"github.com/mfauto/mfauto/meshio"
	"github.com/mfauto/mfauto/moldflow"
	"github.com/mfauto/mfauto/patran"
	"github.com/mfauto/mfauto/result"
)

// Directory and file names below the export directory
const (
	RawDir        = "rawdata"
	InterfacesDir = "interfaces"
	LogFile       = "log.txt"
	MeshFile      = "mesh.pat"
)

// metricScale converts the meter coordinates of Patran exports to mm
const metricScale = 1e3

// tensorOrder swaps the 13 and 23 components of 6 component results
var tensorOrder = []int{0, 1, 2, 3, 5, 4}

// MeshOptions control ExportMesh
type MeshOptions struct {
	// Formats of interfaces/mesh.<format>, see meshio.Formats
	Formats []string
	// RawOnly stops after the Patran export
	RawOnly bool
}

// ResultSpec selects a result to export
type ResultSpec struct {
	// ID is the Moldflow result identifier (see results.dat)
	ID int
	// Name labels the result in output files
	Name string
	// AllSteps exports every time step instead of the last one
	AllSteps bool
	// NPY also writes interfaces/<name>.npy for single step results
	NPY bool
	// RawOnly stops after the XML export
	RawOnly bool
}

// Exporter exports data of one study. It is not safe for concurrent use.
type Exporter struct {
	Study   string
	OutDir  string
	OutFile string

	// Artifacts lists the files written so far
	Artifacts []data.Artifact

	inst *moldflow.Install
	log  *log.Logger
	mesh *data.Mesh
}

// NewExporter creates an exporter for study. outDir and outFile may be
// empty.
func NewExporter(inst *moldflow.Install, study, outDir, outFile string) *Exporter {
	return &Exporter{
		Study:   study,
		OutDir:  outDir,
		OutFile: outFile,
		inst:    inst,
		log:     inst.Logger("Studyrlt"),
	}
}

// Dir returns the export directory: OutDir, else the directory of
// OutFile, else the directory of the study
func (e *Exporter) Dir() string {
	switch {
	case e.OutDir != "":
		return e.OutDir
	case e.OutFile != "":
		return filepath.Dir(e.OutFile)
	default:
		return filepath.Dir(e.Study)
	}
}

// RawDir returns where tool outputs are kept
func (e *Exporter) RawDir() string {
	return filepath.Join(e.Dir(), RawDir)
}

// InterfacesDir returns where converted meshes and arrays are written
func (e *Exporter) InterfacesDir() string {
	return filepath.Join(e.Dir(), InterfacesDir)
}

// Mesh returns the mesh loaded by ExportMesh, nil if none
func (e *Exporter) Mesh() *data.Mesh {
	return e.mesh
}

// Check verifies that studyrlt starts and prints its banner
func (e *Exporter) Check(ctx context.Context) error {
	out, err := e.inst.Output(ctx, e.inst.StudyRLT)
	if err != nil {
		return err
	}
	return moldflow.CheckOutput(e.inst.StudyRLT, out, moldflow.BannerAutodesk)
}

// ExportLog exports the analysis log to log.txt and returns its path
func (e *Exporter) ExportLog(ctx context.Context) (string, error) {
	e.log.Println("Exporting log file")

	raw, err := e.run(ctx, ".txt", "-exportoutput")
	if err != nil {
		return "", err
	}

	out := filepath.Join(e.Dir(), LogFile)
	if err := file.Move(raw, out); err != nil {
		return "", err
	}

	e.record(data.ArtifactLog, out)
	return out, nil
}

// ExportMesh exports the mesh. The Patran export is cached in
// rawdata/mesh.pat. Unless RawOnly is set, the mesh is loaded, scaled to
// mm for metric runs, reduced to its dominant cell type and written in
// the requested formats.
func (e *Exporter) ExportMesh(ctx context.Context, o MeshOptions) error {
	for _, f := range o.Formats {
		if !meshio.SupportedFormat(f) {
			return fmt.Errorf("unsupported mesh format: %v", f)
		}
	}

	pat := filepath.Join(e.RawDir(), MeshFile)

	if !file.Exists(pat) {
		e.log.Println("Mesh: running studyrlt")
		raw, err := e.run(ctx, ".pat", "-exportpatran")
		if err != nil {
			return err
		}
		if err := file.Move(raw, pat); err != nil {
			return err
		}
		e.record(data.ArtifactRaw, pat)
	} else {
		e.log.Println("Mesh: Patran file already generated")
	}

	if o.RawOnly {
		return nil
	}

	e.log.Println("Mesh: reading Patran file")
	mesh, err := patran.ReadFile(pat, patran.DefaultCellTypes...)
	if err != nil {
		return fmt.Errorf("Error reading mesh: %w", err)
	}

	if e.inst.Metric() {
		mesh.Scale(metricScale)
	}

	if err := mesh.KeepDominantCellType(); err != nil {
		return err
	}

	e.log.Printf("Mesh: %v points, %v %v cells", len(mesh.Points),
		len(mesh.Cells[mesh.CellType]), mesh.CellType)

	e.mesh = mesh

	for _, f := range o.Formats {
		out := filepath.Join(e.InterfacesDir(), "mesh."+f)
		if err := os.MkdirAll(e.InterfacesDir(), 0755); err != nil {
			return err
		}
		if err := meshio.Write(out, mesh); err != nil {
			return fmt.Errorf("Error writing mesh: %w", err)
		}
		e.record(data.ArtifactMesh, out)
	}

	return nil
}

// ExportResult exports a result. The XML export is cached in
// rawdata/<name>.xml. Unless RawOnly is set, the result is parsed and
// converted: non-mesh results to a workbook, mesh results to fields of
// the output file. The decoded result is returned, nil with RawOnly.
func (e *Exporter) ExportResult(ctx context.Context, r ResultSpec) (*data.Result, error) {
	if r.Name == "" {
		r.Name = "result_" + strconv.Itoa(r.ID)
	}

	ioName := data.IOName(r.Name)
	xmlPath := filepath.Join(e.RawDir(), ioName+".xml")

	if !file.Exists(xmlPath) {
		e.log.Printf("%v: running studyrlt", r.Name)
		raw, err := e.run(ctx, ".xml", "-xml", strconv.Itoa(r.ID))
		if err != nil {
			return nil, err
		}
		if err := file.Move(raw, xmlPath); err != nil {
			return nil, err
		}
		e.record(data.ArtifactRaw, xmlPath)
	} else {
		e.log.Printf("%v: XML file already generated", r.Name)
	}

	if r.RawOnly {
		return nil, nil
	}

	e.log.Printf("%v: parsing XML (%v)", r.Name, humanize.Bytes(uint64(file.Size(xmlPath))))
	res, err := result.ReadFile(xmlPath, !r.AllSteps)
	if err != nil {
		return nil, err
	}

	switch {
	case res.Kind == data.ResultNonMesh:
		err = e.nonMesh(res, r.Name)
	case res.Times == nil:
		err = e.singleStep(ctx, res, r)
	default:
		err = e.timeSeries(ctx, res, r.Name)
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

// Finalize converts an XDMF output file with time-dependent fields to a
// temporal collection
func (e *Exporter) Finalize() error {
	if e.OutFile == "" || filepath.Ext(e.OutFile) != ".xdmf" || !file.Exists(e.OutFile) {
		return nil
	}
	if err := meshio.ConvertTimeSeries(e.OutFile); err != nil {
		return err
	}

	e.record(data.ArtifactResult, e.OutFile)
	return nil
}

// run runs studyrlt on the study and moves the file it produces, the
// study with extension ext, to the raw data directory
func (e *Exporter) run(ctx context.Context, ext string, action ...string) (string, error) {
	if !file.Exists(e.Study) {
		return "", fmt.Errorf("study %v: %w", e.Study, data.ErrNotFound)
	}

	args := append([]string{e.Study}, action...)
	if e.inst.Units != "" {
		args = append(args, "-unit", e.inst.Units)
	}

	out, err := e.inst.Output(ctx, e.inst.StudyRLT, args...)
	if err != nil {
		return "", err
	}

	if err := moldflow.CheckOutput(e.inst.StudyRLT, out, moldflow.BannerAutodesk); err != nil {
		return "", err
	}

	moldflow.CleanupScratch(e.Study)

	produced := moldflow.ReplaceExt(e.Study, ext)
	if !file.Exists(produced) {
		return "", fmt.Errorf("Unable to retrieve outputs for %v: %w",
			moldflow.CommandLine(e.inst.StudyRLT, args...), data.ErrNoOutput)
	}

	raw := filepath.Join(e.RawDir(), filepath.Base(produced))
	if err := file.Move(produced, raw); err != nil {
		return "", err
	}

	return raw, nil
}

// record adds a written file to Artifacts. A file written again keeps its
// entry with the new size.
func (e *Exporter) record(kind, path string) {
	for i := range e.Artifacts {
		if e.Artifacts[i].Path == path {
			e.Artifacts[i].Size = file.Size(path)
			return
		}
	}

	e.Artifacts = append(e.Artifacts, data.Artifact{
		Kind: kind,
		Name: filepath.Base(path),
		Path: path,
		Size: file.Size(path),
	})
}
