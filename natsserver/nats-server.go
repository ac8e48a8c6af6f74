// Package natsserver runs an embedded NATS broker jobs and status
// messages go through.
package natsserver

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Options for starting the nats server
type Options struct {
	Port       int
	HTTPPort   int
	Auth       string
	TLSCert    string
	TLSKey     string
	TLSTimeout float64
}

// New creates a nats server instance
func New(o Options) (*server.Server, error) {
	opts := server.Options{
		Port:          o.Port,
		HTTPPort:      o.HTTPPort,
		Authorization: o.Auth,
		NoSigs:        true,
	}

	if o.TLSCert != "" && o.TLSKey != "" {
		log.Println("Setting up NATS TLS ...")
		opts.TLS = true
		opts.TLSCert = o.TLSCert
		opts.TLSKey = o.TLSKey
		opts.TLSTimeout = o.TLSTimeout
		tc := server.TLSConfigOpts{}
		tc.CertFile = opts.TLSCert
		tc.KeyFile = opts.TLSKey

		var err error
		opts.TLSConfig, err = server.GenTLSConfig(&tc)

		if err != nil {
			return nil, fmt.Errorf("Error setting up TLS: %v", err)
		}
	}

	natsServer, err := server.NewServer(&opts)

	if err != nil {
		return nil, fmt.Errorf("Error create new Nats server: %v", err)
	}

	authEnabled := "no"

	if o.Auth != "" {
		authEnabled = "yes"
	}

	log.Printf("NATS server, port: %v, http port: %v, auth enabled: %v\n",
		o.Port, o.HTTPPort, authEnabled)

	return natsServer, nil
}

// Start creates a nats server and waits until it accepts connections.
// Call Shutdown on the returned server to stop it.
func Start(o Options) (*server.Server, error) {
	s, err := New(o)
	if err != nil {
		return nil, err
	}

	go s.Start()

	if !s.ReadyForConnections(10 * time.Second) {
		s.Shutdown()
		return nil, fmt.Errorf("NATS server not ready for connections")
	}

	return s, nil
}
