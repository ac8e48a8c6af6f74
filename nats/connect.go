package nats

import (
	"log"
	"net"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectOptions describes options for connecting workers and clients
type ConnectOptions struct {
	Server    string
	AuthToken string
	// Name identifies the connection on the server
	Name string
	// Retry keeps trying to connect when the server is not reachable yet
	Retry bool

	Disconnected func()
	Reconnected  func()
	Closed       func()
}

// Connect connects to a NATS server. Reconnects back off exponentially up
// to one minute.
func Connect(o ConnectOptions) (*nats.Conn, error) {
	authEnabled := "no"
	if o.AuthToken != "" {
		authEnabled = "yes"
	}
	server, err := ServerURL(o.Server)
	if err != nil {
		return nil, err
	}

	log.Printf("NATS connect to: %v, auth enabled: %v", server, authEnabled)

	nc, err := nats.Connect(server,
		nats.Name(o.Name),
		nats.Timeout(10*time.Second),
		nats.DrainTimeout(30*time.Second),
		nats.PingInterval(2*time.Minute),
		nats.MaxPingsOutstanding(3),
		nats.RetryOnFailedConnect(o.Retry),
		nats.ReconnectBufSize(1024*1024),
		nats.MaxReconnects(-1),
		nats.SetCustomDialer(&net.Dialer{
			KeepAlive: -1,
		}),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			delay := ExpBackoff(attempts, time.Minute)
			log.Printf("NATS reconnect attempts: %v, delay: %v", attempts, delay)
			return delay
		}),
		nats.Token(o.AuthToken),
	)

	if err != nil {
		return nil, err
	}

	nc.SetErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
		var subject string
		if sub != nil {
			subject = sub.Subject
		}
		log.Printf("NATS error, sub: %v, err: %s\n", subject, err)
	})

	nc.SetReconnectHandler(func(_ *nats.Conn) {
		log.Println("NATS reconnected")
		if o.Reconnected != nil {
			o.Reconnected()
		}
	})

	nc.SetDisconnectHandler(func(_ *nats.Conn) {
		log.Println("NATS disconnected")
		if o.Disconnected != nil {
			o.Disconnected()
		}
	})

	nc.SetClosedHandler(func(_ *nats.Conn) {
		if o.Closed != nil {
			o.Closed()
		}
	})

	return nc, nil
}
