package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/nats"
	"github.com/mfauto/mfauto/pipeline"
	natsgo "github.com/nats-io/nats.go"
)

// ErrQueueFull is returned when a worker has too many jobs waiting
var ErrQueueFull = errors.New("job queue full")

// ErrWorkerStopped is returned when a job is submitted to a stopped worker
var ErrWorkerStopped = errors.New("worker stopped")

// WorkerOptions configure a Worker
type WorkerOptions struct {
	// Env is passed to every pipeline. Status and JobID are set by the
	// worker.
	Env pipeline.Env
	// Host names the worker, defaults to the hostname
	Host string
	// QueueSize is the number of jobs that can wait, defaults to 16
	QueueSize int
	// BaseDir resolves relative paths of pipelines received over NATS
	BaseDir string
}

type queuedJob struct {
	id   string
	spec *pipeline.Spec
}

// Worker executes pipelines one at a time. Moldflow tools are not run
// in parallel on a host.
type Worker struct {
	nc       *natsgo.Conn
	options  WorkerOptions
	jobs     chan queuedJob
	stop     chan struct{}
	stopOnce sync.Once
	busy     atomic.Bool
	log      *log.Logger
}

// NewWorker creates a worker. nc may be nil, jobs are then only
// accepted through Submit.
func NewWorker(nc *natsgo.Conn, o WorkerOptions) *Worker {
	if o.QueueSize <= 0 {
		o.QueueSize = 16
	}

	if o.Host == "" {
		o.Host, _ = os.Hostname()
	}

	return &Worker{
		nc:      nc,
		options: o,
		jobs:    make(chan queuedJob, o.QueueSize),
		stop:    make(chan struct{}),
		log:     log.New(log.Writer(), "Worker: ", log.Flags()|log.Lmsgprefix),
	}
}

// Busy returns true while a job executes
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Submit validates and queues a pipeline and returns its job ID
func (w *Worker) Submit(spec *pipeline.Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	j := queuedJob{id: uuid.New().String(), spec: spec}

	select {
	case <-w.stop:
		return "", ErrWorkerStopped
	default:
	}

	select {
	case w.jobs <- j:
	default:
		return "", ErrQueueFull
	}

	w.log.Printf("Job %v queued: %v", j.id, spec.Study)
	w.publish(data.JobStatus{ID: j.id, State: data.JobStateQueued, Message: "queued", Time: time.Now()})

	return j.id, nil
}

// Run accepts and executes jobs until stopped
func (w *Worker) Run() error {
	if w.nc != nil {
		sub, err := nats.ListenForJobs(w.nc, w.options.Host, func(p []byte) (string, error) {
			spec, err := pipeline.Parse(p)
			if err != nil {
				return "", err
			}
			if w.options.BaseDir != "" {
				spec.Resolve(w.options.BaseDir)
			}
			return w.Submit(spec)
		})
		if err != nil {
			return fmt.Errorf("Error subscribing to jobs: %v", err)
		}
		defer sub.Unsubscribe()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-w.stop
		cancel()
	}()

	for {
		select {
		case <-w.stop:
			w.drop()
			return nil
		default:
		}

		select {
		case <-w.stop:
			w.drop()
			return nil
		case j := <-w.jobs:
			w.execute(ctx, j)
		}
	}
}

// drop fails the jobs still waiting in the queue
func (w *Worker) drop() {
	for {
		select {
		case j := <-w.jobs:
			w.log.Printf("Job %v dropped: %v", j.id, ErrWorkerStopped)
			s := data.JobStatus{
				ID:      j.id,
				State:   data.JobStateFailed,
				Message: "dropped",
				Error:   ErrWorkerStopped.Error(),
				Time:    time.Now(),
			}
			w.publish(s)
			if w.options.Env.Status != nil {
				w.options.Env.Status(s)
			}
		default:
			return
		}
	}
}

func (w *Worker) execute(ctx context.Context, j queuedJob) {
	w.busy.Store(true)
	defer w.busy.Store(false)

	env := w.options.Env
	env.JobID = j.id
	env.Host = w.options.Host

	status := env.Status
	env.Status = func(s data.JobStatus) {
		w.publish(s)
		if status != nil {
			status(s)
		}
	}

	_, err := pipeline.Execute(ctx, j.spec, env)
	if err != nil {
		w.log.Printf("Job %v failed: %v", j.id, err)
	}
}

func (w *Worker) publish(s data.JobStatus) {
	if w.nc == nil {
		return
	}
	if err := nats.PublishStatus(w.nc, s); err != nil {
		w.log.Println("Error publishing status: ", err)
	}
}

// Stop the worker. A running job is cancelled.
func (w *Worker) Stop(_ error) {
	w.stopOnce.Do(func() { close(w.stop) })
}
