// Package server runs a mfauto node: an embedded NATS server, the job
// catalogue and the worker clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mfauto/mfauto/client"
	"github.com/mfauto/mfauto/moldflow"
	"github.com/mfauto/mfauto/nats"
	"github.com/mfauto/mfauto/natsserver"
	"github.com/mfauto/mfauto/pipeline"
	"github.com/mfauto/mfauto/store"
	"github.com/mfauto/mfauto/studymod"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/oklog/run"
)

// ErrServerStopped is returned when the server is stopped
var ErrServerStopped = errors.New("Server stopped")

// Options used for starting mfauto
type Options struct {
	DataDir           string
	StoreFile         string
	Moldflow          string
	TCodes            string
	Materials         string
	WatchDir          string
	QueueSize         int
	MetricsPeriod     time.Duration
	Host              string
	DebugLifecycle    bool
	NatsServer        string
	NatsDisableServer bool
	NatsPort          int
	NatsHTTPPort      int
	NatsTLSCert       string
	NatsTLSKey        string
	NatsTLSTimeout    float64
	AuthToken         string

	// Commander runs the Moldflow tools, defaults to child processes
	Commander moldflow.Commander
}

// Server represents a mfauto server process
type Server struct {
	nc                 *natsgo.Conn
	options            Options
	natsServer         *server.Server
	clients            *client.RunGroup
	chNatsClientClosed chan struct{}
	chStop             chan struct{}
	stopOnce           sync.Once
	chWaitStart        chan struct{}
}

// NewServer creates a new server
func NewServer(o Options) (*Server, *natsgo.Conn, error) {
	chNatsClientClosed := make(chan struct{})

	// start the server side nats client
	nc, err := nats.Connect(nats.ConnectOptions{
		Server:    o.NatsServer,
		AuthToken: o.AuthToken,
		Name:      "mfauto server",
		Retry:     true,
		Closed: func() {
			log.Println("Server NATS client: closed")
			close(chNatsClientClosed)
		},
	})

	return &Server{
		nc:                 nc,
		options:            o,
		chNatsClientClosed: chNatsClientClosed,
		chStop:             make(chan struct{}),
		chWaitStart:        make(chan struct{}),
		clients:            client.NewRunGroup("Server clients"),
	}, nc, err
}

// AddClient can be used to add clients to the server.
// Clients must be added before Run is called.
func (s *Server) AddClient(client client.RunStop) {
	s.clients.Add(client)
}

// Run the server -- only returns if there is an error
func (s *Server) Run() error {
	var g run.Group

	logLS := func(m ...any) {}

	if s.options.DebugLifecycle {
		logLS = func(m ...any) {
			log.Println(m...)
		}
	}

	o := s.options

	var err error

	// ====================================
	// Nats server
	// ====================================
	if !o.NatsDisableServer {
		s.natsServer, err = natsserver.New(natsserver.Options{
			Port:       o.NatsPort,
			HTTPPort:   o.NatsHTTPPort,
			Auth:       o.AuthToken,
			TLSCert:    o.NatsTLSCert,
			TLSKey:     o.NatsTLSKey,
			TLSTimeout: o.NatsTLSTimeout,
		})
		if err != nil {
			return fmt.Errorf("Error setting up nats server: %v", err)
		}

		g.Add(func() error {
			s.natsServer.Start()
			s.natsServer.WaitForShutdown()
			logLS("LS: Exited: nats server")
			return fmt.Errorf("NATS server stopped")
		}, func(err error) {
			s.natsServer.Shutdown()
			logLS("LS: Shutdown: nats server")
		})
	}

	// ====================================
	// Job store and databases
	// ====================================
	db, err := store.NewSqliteDb(o.DataDir, o.StoreFile)
	if err != nil {
		return fmt.Errorf("Error opening store: %v", err)
	}
	defer db.Close()

	studies, err := studymod.LoadDatabase(o.TCodes, o.Materials)
	if err != nil {
		return err
	}

	// ====================================
	// Clients
	// ====================================
	worker := client.NewWorker(s.nc, client.WorkerOptions{
		Env: pipeline.Env{
			Moldflow:  o.Moldflow,
			Database:  studies,
			Commander: o.Commander,
			Store:     db,
		},
		Host:      o.Host,
		QueueSize: o.QueueSize,
		BaseDir:   o.DataDir,
	})
	s.clients.Add(worker)

	if o.MetricsPeriod > 0 {
		s.clients.Add(client.NewMetricsClient(s.nc, client.MetricsOptions{
			Period: o.MetricsPeriod,
			Dir:    o.DataDir,
			Busy:   worker.Busy,
		}))
	}

	if o.WatchDir != "" {
		s.clients.Add(client.NewWatcher(o.WatchDir, 0, worker.Submit))
	}

	g.Add(func() error {
		err := s.clients.Run()
		logLS("LS: Exited: clients: ", err)
		return err
	}, func(err error) {
		s.clients.Stop(err)
		logLS("LS: Shutdown: clients")
	})

	// Give us a way to stop the server
	// and signal to waiters we have started
	chShutdown := make(chan struct{})
	g.Add(func() error {
		select {
		case <-s.chStop:
			logLS("LS: Exited: stop handler")
			return ErrServerStopped
		case <-chShutdown:
			logLS("LS: Exited: stop handler")
			return nil
		}
	}, func(_ error) {
		close(chShutdown)
		logLS("LS: Shutdown: stop handler")
	})

	chRunError := make(chan error)

	go func() {
		chRunError <- g.Run()
	}()

	if s.natsServer != nil && !s.natsServer.ReadyForConnections(10*time.Second) {
		log.Println("NATS server not ready for connections")
	}

	var retErr error

done:
	for {
		select {
		// unblock any waits
		case <-s.chWaitStart:
			// No-op, reading channel is enough to unblock wait
		case retErr = <-chRunError:
			break done
		}
	}

	s.nc.Close()

	return retErr
}

// Stop server
func (s *Server) Stop(_ error) {
	s.stopOnce.Do(func() { close(s.chStop) })
}

// WaitStart waits for server to start. Clients should wait for this
// to complete before submitting jobs.
func (s *Server) WaitStart(ctx context.Context) error {
	waitDone := make(chan struct{})

	go func() {
		// the following will block until the main select
		// loop starts
		s.chWaitStart <- struct{}{}
		close(waitDone)
	}()

	select {
	case <-ctx.Done():
		return errors.New("Server wait timeout or canceled")
	case <-waitDone:
		// all is well
		return nil
	}
}
