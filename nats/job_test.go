package nats

import (
	"errors"
	"testing"
	"time"

	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/natsserver"
	natsgo "github.com/nats-io/nats.go"
)

func testConn(t *testing.T) *natsgo.Conn {
	t.Helper()
	s, err := natsserver.Start(natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal("Error starting nats server: ", err)
	}
	t.Cleanup(s.Shutdown)

	nc, err := Connect(ConnectOptions{Server: s.ClientURL(), Name: "test"})
	if err != nil {
		t.Fatal("Error connecting: ", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestSubmitJob(t *testing.T) {
	nc := testConn(t)

	if _, err := SubmitJob(nc, []byte("study: a.sdy"), time.Second); !errors.Is(err, ErrNoWorker) {
		t.Fatal("expected ErrNoWorker, got: ", err)
	}

	sub, err := ListenForJobs(nc, "worker1", func(p []byte) (string, error) {
		if string(p) == "bad" {
			return "", errors.New("invalid pipeline")
		}
		return "job-1", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	resp, err := SubmitJob(nc, []byte("study: a.sdy"), time.Second)
	if err != nil {
		t.Fatal("submit failed: ", err)
	}
	if resp.ID != "job-1" || resp.Host != "worker1" {
		t.Fatal("wrong response: ", resp)
	}

	if _, err := SubmitJob(nc, []byte("bad"), time.Second); err == nil || err.Error() != "invalid pipeline" {
		t.Fatal("expected worker error, got: ", err)
	}
}

func TestStatus(t *testing.T) {
	nc := testConn(t)

	all := make(chan data.JobStatus, 10)
	one := make(chan data.JobStatus, 10)

	subAll, err := ListenForStatus(nc, "", func(s data.JobStatus) { all <- s })
	if err != nil {
		t.Fatal(err)
	}
	defer subAll.Unsubscribe()

	subOne, err := ListenForStatus(nc, "b", func(s data.JobStatus) { one <- s })
	if err != nil {
		t.Fatal(err)
	}
	defer subOne.Unsubscribe()

	for _, id := range []string{"a", "b"} {
		err := PublishStatus(nc, data.JobStatus{ID: id, State: data.JobStateRunning, Time: time.Now()})
		if err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for status")
		}
	}

	select {
	case s := <-one:
		if s.ID != "b" || s.State != data.JobStateRunning {
			t.Fatal("wrong status: ", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status of b")
	}

	select {
	case s := <-one:
		t.Fatal("received status of another job: ", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMetrics(t *testing.T) {
	nc := testConn(t)

	got := make(chan data.HostMetrics, 1)
	sub, err := ListenForMetrics(nc, func(m data.HostMetrics) { got <- m })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := PublishMetrics(nc, data.HostMetrics{Host: "w1", CPUPercent: 12.5}); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-got:
		if m.Host != "w1" || m.CPUPercent != 12.5 {
			t.Fatal("wrong metrics: ", m)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for metrics")
	}
}

func TestSubjects(t *testing.T) {
	if SubjectJobStatus("123") != "mfauto.job.123.status" {
		t.Fatal("wrong status subject: ", SubjectJobStatus("123"))
	}
}
