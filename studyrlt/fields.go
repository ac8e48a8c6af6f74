package studyrlt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/meshio"
)

// ensureMesh loads the mesh if no ExportMesh call did yet
func (e *Exporter) ensureMesh(ctx context.Context) error {
	if e.mesh != nil {
		return nil
	}
	e.log.Println("Mesh not loaded, exporting it first")
	return e.ExportMesh(ctx, MeshOptions{})
}

// field places the values of one step on the mesh. Identifiers unknown
// to the mesh are ignored.
func (e *Exporter) field(res *data.Result, name string, step map[int][]float64) (data.Field, error) {
	locate := e.mesh.PointIDs
	n := len(e.mesh.Points)
	if res.Kind == data.ResultElementData {
		locate = e.mesh.CellIndex()
		n = len(e.mesh.Cells[e.mesh.CellType])
	}

	f := data.NewField(name, n, res.Components)
	for id, v := range step {
		if i, ok := locate[id]; ok {
			f.Set(i, v)
		}
	}

	if res.Components == len(tensorOrder) {
		return f.Reorder(tensorOrder)
	}

	return f, nil
}

func (e *Exporter) setField(res *data.Result, f data.Field) {
	if res.Kind == data.ResultNodeData {
		e.mesh.SetPointField(f)
	} else {
		e.mesh.SetCellField(f)
	}
}

func (e *Exporter) writeOutFile() error {
	if err := os.MkdirAll(filepath.Dir(e.OutFile), 0755); err != nil {
		return err
	}
	if err := meshio.Write(e.OutFile, e.mesh); err != nil {
		return fmt.Errorf("Error writing %v: %w", e.OutFile, err)
	}
	e.record(data.ArtifactResult, e.OutFile)
	return nil
}

func (e *Exporter) singleStep(ctx context.Context, res *data.Result, r ResultSpec) error {
	if len(res.Steps) == 0 {
		return fmt.Errorf("%v: no data: %w", r.Name, data.ErrParse)
	}

	if e.OutFile == "" && !r.NPY {
		return nil
	}

	if err := e.ensureMesh(ctx); err != nil {
		return err
	}

	f, err := e.field(res, r.Name, res.Steps[len(res.Steps)-1])
	if err != nil {
		return err
	}

	if e.OutFile != "" {
		e.setField(res, f)
		if err := e.writeOutFile(); err != nil {
			return err
		}
	}

	if r.NPY {
		if err := os.MkdirAll(e.InterfacesDir(), 0755); err != nil {
			return err
		}
		out := filepath.Join(e.InterfacesDir(), data.IOName(r.Name)+".npy")
		if err := meshio.WriteNPY(out, f); err != nil {
			return err
		}
		e.record(data.ArtifactResult, out)
	}

	return nil
}

func (e *Exporter) timeSeries(ctx context.Context, res *data.Result, name string) error {
	if e.OutFile == "" {
		return nil
	}

	if err := e.ensureMesh(ctx); err != nil {
		return err
	}

	for i, t := range res.Times {
		e.log.Printf("%v: reading time-step #%d/%d", name, i+1, len(res.Times))
		f, err := e.field(res, meshio.TimeName(name, t), res.Steps[i])
		if err != nil {
			return err
		}
		e.setField(res, f)
	}

	return e.writeOutFile()
}
