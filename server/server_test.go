package server

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/moldflow"
	"github.com/mfauto/mfauto/nats"
	"github.com/mfauto/mfauto/store"
)

var testServerOptions = Options{
	NatsPort:     4990,
	NatsHTTPPort: 0,
	NatsServer:   "nats://localhost:4990",
	QueueSize:    4,
	Host:         "test",
}

func TestArgs(t *testing.T) {
	t.Setenv("MFAUTO_DATA", "/data")
	t.Setenv("MFAUTO_MOLDFLOW", "/opt/moldflow")
	t.Setenv("MFAUTO_NATS_PORT", "4300")
	t.Setenv("MFAUTO_NATS_SERVER", "nats://server:4300")
	t.Setenv("MFAUTO_AUTH_TOKEN", "env-token")

	o, err := Args([]string{"-token", "flag-token", "-watch", "/jobs"},
		flag.NewFlagSet("serve", flag.ContinueOnError))
	if err != nil {
		t.Fatal(err)
	}

	if o.DataDir != "/data" || o.Moldflow != "/opt/moldflow" || o.NatsPort != 4300 ||
		o.NatsServer != "nats://server:4300" || o.WatchDir != "/jobs" {
		t.Fatalf("wrong options: %+v", o)
	}

	if o.AuthToken != "flag-token" {
		t.Fatal("command line must win over env: ", o.AuthToken)
	}

	t.Setenv("MFAUTO_NATS_PORT", "abc")
	if _, err := Args(nil, flag.NewFlagSet("serve", flag.ContinueOnError)); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestServer(t *testing.T) {
	install := t.TempDir()
	if err := moldflow.FakeInstall(install); err != nil {
		t.Fatal(err)
	}

	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "part.sdy"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	o := testServerOptions
	o.DataDir = dataDir
	o.Moldflow = install
	o.Commander = &moldflow.FakeCommander{Fn: func(string, []string) (string, error) {
		return "Autodesk Moldflow Insight\nAnalysis complete", nil
	}}

	s, nc, err := NewServer(o)
	if err != nil {
		t.Fatal("Error creating server: ", err)
	}

	stopped := make(chan error)
	go func() {
		stopped <- s.Run()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = s.WaitStart(ctx)
	cancel()
	if err != nil {
		t.Fatal(err)
	}

	statuses := make(chan data.JobStatus, 20)
	sub, err := nats.ListenForStatus(nc, "", func(st data.JobStatus) { statuses <- st })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	var resp nats.JobResponse
	for i := 0; i < 50; i++ {
		resp, err = nats.SubmitJob(nc, []byte("study: part.sdy\nrun: true\n"), time.Second)
		if err != nats.ErrNoWorker {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatal("submit failed: ", err)
	}

	timeout := time.After(10 * time.Second)
wait:
	for {
		select {
		case st := <-statuses:
			if st.ID == resp.ID && st.State.Final() {
				if st.State != data.JobStateDone {
					t.Fatal("job failed: ", st.Error)
				}
				break wait
			}
		case <-timeout:
			t.Fatal("timeout waiting for job")
		}
	}

	s.Stop(nil)
	if err := <-stopped; err != ErrServerStopped {
		t.Fatal("unexpected server error: ", err)
	}

	db, err := store.NewSqliteDb(dataDir, "")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	job, err := db.Job(resp.ID)
	if err != nil || job.State != data.JobStateDone || job.Host != "test" {
		t.Fatal("job not stored: ", job, err)
	}
}
