package natsserver

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestStart(t *testing.T) {
	s, err := Start(Options{Port: -1, HTTPPort: 0, Auth: "secret"})
	if err != nil {
		t.Fatal("Error starting server: ", err)
	}
	defer s.Shutdown()

	if _, err := nats.Connect(s.ClientURL(), nats.Timeout(time.Second)); err == nil {
		t.Fatal("connected without token")
	}

	nc, err := nats.Connect(s.ClientURL(), nats.Token("secret"))
	if err != nil {
		t.Fatal("Error connecting: ", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("test")
	if err != nil {
		t.Fatal(err)
	}

	if err := nc.Publish("test", []byte("hi")); err != nil {
		t.Fatal(err)
	}

	msg, err := sub.NextMsg(time.Second)
	if err != nil || string(msg.Data) != "hi" {
		t.Fatal("message not received: ", err)
	}
}
