package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/file"
	"github.com/mfauto/mfauto/moldflow"
	"github.com/mfauto/mfauto/runstudy"
	"github.com/mfauto/mfauto/studymod"
	"github.com/mfauto/mfauto/studyrlt"
)

// Store records jobs and their artifacts
type Store interface {
	JobInsert(job data.Job) (data.Job, error)
	JobUpdate(job data.Job) error
	ArtifactInsert(a data.Artifact) error
}

// Env holds what a pipeline needs besides its spec
type Env struct {
	// Moldflow is the installation used when the pipeline sets none
	Moldflow string
	// Database resolves parameter and material names
	Database *studymod.Database
	// Commander runs the tools, defaults to moldflow.ExecCommander
	Commander moldflow.Commander
	// Store, if set, records the job and its artifacts
	Store Store
	// Status, if set, is called on job progress
	Status func(data.JobStatus)
	// LogOutput receives progress messages, defaults to the output of the
	// standard logger
	LogOutput io.Writer
	// Host names the machine running the job
	Host string
	// JobID is used for the job instead of a generated one
	JobID string
}

type execution struct {
	spec *Spec
	env  Env
	job  data.Job
	inst *moldflow.Install
	log  *log.Logger
}

// Execute runs a pipeline: modify, run and export, each if requested.
// The job is returned, in the done or failed state, with the error that
// stopped it.
func Execute(ctx context.Context, spec *Spec, env Env) (data.Job, error) {
	if env.LogOutput == nil {
		env.LogOutput = log.Writer()
	}

	if env.Host == "" {
		env.Host, _ = os.Hostname()
	}

	e := &execution{
		spec: spec,
		env:  env,
		log:  log.New(env.LogOutput, "Pipeline: ", log.LstdFlags|log.Lmsgprefix),
		job: data.Job{
			ID:     env.JobID,
			Type:   data.JobTypePipeline,
			Study:  spec.Study,
			Output: spec.Target(),
			State:  data.JobStateQueued,
			Host:   env.Host,
		},
	}

	if e.job.ID == "" {
		e.job.ID = uuid.New().String()
	}

	if env.Store != nil {
		job, err := env.Store.JobInsert(e.job)
		if err != nil {
			return e.job, err
		}
		e.job = job
	}

	err := e.execute(ctx)

	e.job.Finished = time.Now()
	if err != nil {
		e.job.State = data.JobStateFailed
		e.job.Error = err.Error()
		e.log.Printf("Job %v failed: %v", e.job.ID, err)
	} else {
		e.job.State = data.JobStateDone
		e.log.Printf("Job %v done in %v", e.job.ID, e.job.Duration().Round(time.Millisecond))
	}

	if env.Store != nil {
		if serr := env.Store.JobUpdate(e.job); serr != nil {
			e.log.Println("Error updating job: ", serr)
		}
	}

	e.status("", err)

	return e.job, err
}

func (e *execution) execute(ctx context.Context) error {
	if err := e.spec.Validate(); err != nil {
		return err
	}

	e.job.State = data.JobStateRunning
	e.job.Started = time.Now()
	if e.env.Store != nil {
		if err := e.env.Store.JobUpdate(e.job); err != nil {
			return err
		}
	}
	e.status("started", nil)

	path := e.spec.Moldflow
	if path == "" {
		path = e.env.Moldflow
	}

	units := ""
	if e.spec.UseMetric() {
		units = moldflow.UnitsMetric
	}

	inst, err := moldflow.NewInstall(path, moldflow.Options{
		Units:     units,
		Commander: e.env.Commander,
		LogOutput: e.env.LogOutput,
	})
	if err != nil {
		return err
	}
	e.inst = inst

	if e.spec.Modify != nil {
		if err := e.modify(ctx); err != nil {
			return fmt.Errorf("modify: %w", err)
		}
	}

	if e.spec.Run {
		if err := e.run(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	if e.spec.Export != nil {
		if err := e.export(ctx); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	return nil
}

func (e *execution) modify(ctx context.Context) error {
	e.status("modifying study", nil)

	m := e.spec.Modify
	mod := studymod.NewModifier(e.inst, e.env.Database, e.spec.Study, e.spec.Output)

	if m.Material != "" {
		if err := mod.DefineMaterial(m.Material); err != nil {
			return err
		}
	}

	for _, p := range m.Parameters {
		if err := mod.AddParameter(p.Name, p.Value...); err != nil {
			return err
		}
	}

	err := mod.Write(ctx, studymod.WriteOptions{
		ExportModifier: m.ExportModifier,
		ProjectFile:    m.Project,
	})
	if err != nil {
		return err
	}

	e.artifact(data.ArtifactStudy, e.spec.Output)
	if m.ExportModifier {
		e.artifact(data.ArtifactModifier, mod.ModifierPath())
	}

	return nil
}

func (e *execution) run(ctx context.Context) error {
	e.status("running analysis", nil)

	return runstudy.NewRunner(e.inst).Run(ctx, e.spec.Target(), func(l string) {
		e.status(l, nil)
	})
}

func (e *execution) export(ctx context.Context) error {
	e.status("exporting", nil)

	x := e.spec.Export
	ex := studyrlt.NewExporter(e.inst, e.spec.Target(), x.Dir, x.File)

	// record what was written, also on failure
	defer func() {
		for _, a := range ex.Artifacts {
			e.artifact(a.Kind, a.Path)
		}
	}()

	if x.Log {
		if _, err := ex.ExportLog(ctx); err != nil {
			return err
		}
	}

	if x.Mesh != nil {
		err := ex.ExportMesh(ctx, studyrlt.MeshOptions{
			Formats: x.Mesh.Formats,
			RawOnly: x.Mesh.RawOnly,
		})
		if err != nil {
			return err
		}
	}

	for _, r := range x.Results {
		e.status(fmt.Sprintf("exporting %v", r.Name), nil)
		_, err := ex.ExportResult(ctx, studyrlt.ResultSpec{
			ID:       r.ID,
			Name:     r.Name,
			AllSteps: r.AllSteps,
			NPY:      r.NPY,
			RawOnly:  r.RawOnly,
		})
		if err != nil {
			return fmt.Errorf("%v: %w", r.Name, err)
		}
	}

	return ex.Finalize()
}

func (e *execution) artifact(kind, path string) {
	if e.env.Store == nil || !file.Exists(path) {
		return
	}

	err := e.env.Store.ArtifactInsert(data.Artifact{
		JobID: e.job.ID,
		Kind:  kind,
		Name:  filepath.Base(path),
		Path:  path,
		Size:  file.Size(path),
	})
	if err != nil {
		e.log.Println("Error recording artifact: ", err)
	}
}

func (e *execution) status(msg string, err error) {
	if e.env.Status == nil {
		return
	}

	s := data.JobStatus{
		ID:      e.job.ID,
		State:   e.job.State,
		Message: msg,
		Time:    time.Now(),
	}
	if err != nil {
		s.Error = err.Error()
	}

	e.env.Status(s)
}
