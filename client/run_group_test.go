package client

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testClient struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func newTestClient() *testClient {
	return &testClient{stop: make(chan struct{})}
}

func (tc *testClient) Run() error {
	<-tc.stop
	return errors.New("client stopped")
}

func (tc *testClient) Stop(_ error) {
	tc.stopOnce.Do(func() { close(tc.stop) })
}

func waitGroup(t *testing.T, groupErr chan error) error {
	t.Helper()
	select {
	case err := <-groupErr:
		return err
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for group to stop")
	}
	return nil
}

func TestGroupClientStop(t *testing.T) {
	g := NewRunGroup("testGroup")
	testC := newTestClient()
	g.Add(testC)

	groupErr := make(chan error)
	go func() {
		groupErr <- g.Run()
	}()

	testC.Stop(nil)
	if err := waitGroup(t, groupErr); err == nil || err.Error() != "client stopped" {
		t.Fatal("expected client error, got: ", err)
	}
}

func TestGroupStop(t *testing.T) {
	g := NewRunGroup("testGroup")
	g.Add(newTestClient())

	groupErr := make(chan error)
	go func() {
		groupErr <- g.Run()
	}()

	g.Stop(nil)
	g.Stop(nil)
	if err := waitGroup(t, groupErr); err != nil {
		t.Fatal("expected nil error when stopped, got: ", err)
	}
}
