package nats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mfauto/mfauto/data"
	natsgo "github.com/nats-io/nats.go"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrNoWorker is returned when a job is submitted and no worker listens
var ErrNoWorker = errors.New("no worker available")

// JobRequest is sent to submit a pipeline
type JobRequest struct {
	// Pipeline is a YAML pipeline file
	Pipeline []byte
}

// ToPb encodes the request
func (r JobRequest) ToPb() []byte {
	return data.PbAppendBytes(nil, 1, r.Pipeline)
}

// PbDecodeJobRequest decodes a protobuf job request
func PbDecodeJobRequest(buf []byte) (JobRequest, error) {
	var r JobRequest
	err := data.PbRange(buf, func(num protowire.Number, _ uint64, b []byte) {
		if num == 1 {
			r.Pipeline = append([]byte(nil), b...)
		}
	})
	return r, err
}

// JobResponse is the reply of a worker to a JobRequest
type JobResponse struct {
	ID    string
	Host  string
	Error string
}

// ToPb encodes the response
func (r JobResponse) ToPb() []byte {
	var b []byte
	b = data.PbAppendString(b, 1, r.ID)
	b = data.PbAppendString(b, 2, r.Host)
	b = data.PbAppendString(b, 3, r.Error)
	return b
}

// PbDecodeJobResponse decodes a protobuf job response
func PbDecodeJobResponse(buf []byte) (JobResponse, error) {
	var r JobResponse
	err := data.PbRange(buf, func(num protowire.Number, _ uint64, b []byte) {
		switch num {
		case 1:
			r.ID = string(b)
		case 2:
			r.Host = string(b)
		case 3:
			r.Error = string(b)
		}
	})
	return r, err
}

// SubmitJob sends a pipeline to a worker and returns the job ID the
// worker assigned
func SubmitJob(nc *natsgo.Conn, pipeline []byte, timeout time.Duration) (JobResponse, error) {
	req := JobRequest{Pipeline: pipeline}.ToPb()

	msg, err := nc.Request(SubjectJobSubmit, req, timeout)
	if errors.Is(err, natsgo.ErrNoResponders) {
		return JobResponse{}, ErrNoWorker
	}
	if err != nil {
		return JobResponse{}, fmt.Errorf("Error submitting job: %w", err)
	}

	resp, err := PbDecodeJobResponse(msg.Data)
	if err != nil {
		return JobResponse{}, fmt.Errorf("Error decoding job response: %w", err)
	}

	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}

	return resp, nil
}

// ListenForJobs listens for submitted pipelines in the worker queue
// group. callback returns the job ID it accepted the job under, or an
// error sent back to the submitter.
func ListenForJobs(nc *natsgo.Conn, host string, callback func(pipeline []byte) (string, error)) (*natsgo.Subscription, error) {
	return nc.QueueSubscribe(SubjectJobSubmit, QueueWorkers, func(msg *natsgo.Msg) {
		resp := JobResponse{Host: host}

		req, err := PbDecodeJobRequest(msg.Data)
		if err != nil {
			resp.Error = fmt.Sprintf("Error decoding job request: %v", err)
		} else {
			resp.ID, err = callback(req.Pipeline)
			if err != nil {
				resp.Error = err.Error()
			}
		}

		msg.Respond(resp.ToPb())
	})
}

// PublishStatus publishes the status of a job
func PublishStatus(nc *natsgo.Conn, s data.JobStatus) error {
	return nc.Publish(SubjectJobStatus(s.ID), s.ToPb())
}

// DecodeStatusMsg decodes a job status message
func DecodeStatusMsg(msg *natsgo.Msg) (data.JobStatus, error) {
	chunks := strings.Split(msg.Subject, ".")
	if len(chunks) != 4 {
		return data.JobStatus{}, errors.New("Error decoding job status subject")
	}

	s, err := data.PbDecodeJobStatus(msg.Data)
	if err != nil {
		return data.JobStatus{}, fmt.Errorf("Error decoding job status: %w", err)
	}

	if s.ID == "" {
		s.ID = chunks[2]
	}

	return s, nil
}

// ListenForStatus calls callback for every status of a job, of all jobs
// if id is empty
func ListenForStatus(nc *natsgo.Conn, id string, callback func(data.JobStatus)) (*natsgo.Subscription, error) {
	subject := SubjectJobAllStatus()
	if id != "" {
		subject = SubjectJobStatus(id)
	}

	return nc.Subscribe(subject, func(msg *natsgo.Msg) {
		s, err := DecodeStatusMsg(msg)
		if err != nil {
			return
		}
		callback(s)
	})
}

// PublishMetrics publishes the load of a worker host
func PublishMetrics(nc *natsgo.Conn, m data.HostMetrics) error {
	return nc.Publish(SubjectMetrics, m.ToPb())
}

// ListenForMetrics calls callback for every host metrics message
func ListenForMetrics(nc *natsgo.Conn, callback func(data.HostMetrics)) (*natsgo.Subscription, error) {
	return nc.Subscribe(SubjectMetrics, func(msg *natsgo.Msg) {
		m, err := data.PbDecodeHostMetrics(msg.Data)
		if err != nil {
			return
		}
		callback(m)
	})
}
