package nats

// create subject strings for the messages exchanged by servers, workers
// and clients

// SubjectJobSubmit is the subject pipelines are submitted on
const SubjectJobSubmit = "mfauto.job.submit"

// SubjectMetrics is the subject workers publish host metrics on
const SubjectMetrics = "mfauto.metrics"

// QueueWorkers is the queue group of workers, a submitted job is
// delivered to one worker
const QueueWorkers = "mfauto.workers"

// SubjectJobStatus constructs a NATS subject for the status of a job
func SubjectJobStatus(jobID string) string {
	return "mfauto.job." + jobID + ".status"
}

// SubjectJobAllStatus provides subject for the status of any job
func SubjectJobAllStatus() string {
	return "mfauto.job.*.status"
}
