package data

import "time"

// JobType describes what a job does
type JobType string

// Job types
const (
	JobTypeCheck    JobType = "check"
	JobTypeModify   JobType = "modify"
	JobTypeRun      JobType = "run"
	JobTypeExport   JobType = "export"
	JobTypePipeline JobType = "pipeline"
)

// JobState is the lifecycle state of a job
type JobState string

// Job states. A job moves from queued to running and ends in done or
// failed.
const (
	JobStateQueued  JobState = "queued"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// Final returns true if the job will not change state anymore
func (s JobState) Final() bool {
	return s == JobStateDone || s == JobStateFailed
}

// Job is a unit of Moldflow work
type Job struct {
	ID       string    `json:"id"`
	Type     JobType   `json:"type"`
	Study    string    `json:"study"`
	Output   string    `json:"output,omitempty"`
	State    JobState  `json:"state"`
	Error    string    `json:"error,omitempty"`
	Host     string    `json:"host,omitempty"`
	Created  time.Time `json:"created"`
	Started  time.Time `json:"started,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
}

// Duration returns how long the job ran
func (j Job) Duration() time.Duration {
	if j.Started.IsZero() {
		return 0
	}
	if j.Finished.IsZero() {
		return time.Since(j.Started)
	}
	return j.Finished.Sub(j.Started)
}

// Artifact is a file produced by a job
type Artifact struct {
	JobID string `json:"jobId"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
}

// Artifact kinds
const (
	ArtifactStudy    = "study"
	ArtifactModifier = "modifier"
	ArtifactLog      = "log"
	ArtifactMesh     = "mesh"
	ArtifactResult   = "result"
	ArtifactRaw      = "raw"
)

// JobStatus is published while a job progresses
type JobStatus struct {
	ID      string    `json:"id"`
	State   JobState  `json:"state"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// HostMetrics is a snapshot of the load of a worker host
type HostMetrics struct {
	Host        string    `json:"host"`
	CPUPercent  float64   `json:"cpuPercent"`
	MemPercent  float64   `json:"memPercent"`
	DiskPercent float64   `json:"diskPercent"`
	Load1       float64   `json:"load1"`
	Busy        bool      `json:"busy"`
	Time        time.Time `json:"time"`
}
