package client

import (
	"log"
	"sync"

	"github.com/oklog/run"
)

// RunStop is implemented by the long running parts of a worker. Stop may
// be called after Run has returned and must not block.
type RunStop interface {
	Run() error
	Stop(error)
}

// RunGroup is used to group a list of clients and start/stop them.
// It is a thin wrapper around run.Group that adds a Stop() function, so a
// group can itself be added to another group.
type RunGroup struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	group    run.Group
}

// NewRunGroup creates a new client group
func NewRunGroup(name string) *RunGroup {
	return &RunGroup{name: name, stop: make(chan struct{})}
}

// Add client to group
func (g *RunGroup) Add(client RunStop) {
	g.group.Add(client.Run, client.Stop)
}

// Run clients. This function blocks until the first client returns or
// the group is stopped. All clients must be added before Run is called.
func (g *RunGroup) Run() error {
	g.group.Add(func() error {
		<-g.stop
		return nil
	}, func(_ error) {
		g.Stop(nil)
	})

	err := g.group.Run()
	if err != nil {
		log.Printf("%v stopped: %v", g.name, err)
	}

	return err
}

// Stop clients
func (g *RunGroup) Stop(_ error) {
	g.stopOnce.Do(func() { close(g.stop) })
}
