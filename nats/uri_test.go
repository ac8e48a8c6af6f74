package nats

import "testing"

func TestSplitServer(t *testing.T) {
	scheme, host, port, err := splitServer("  wss://myserver.com:443  ")
	if err != nil {
		t.Fatal(err)
	}

	if scheme != "wss" || host != "myserver.com" || port != "443" {
		t.Errorf("got %v %v %v", scheme, host, port)
	}

	scheme, host, port, err = splitServer("myserver.com")
	if err != nil {
		t.Fatal(err)
	}

	if scheme != "nats" || host != "myserver.com" || port != "" {
		t.Errorf("got %v %v %v", scheme, host, port)
	}
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		in  string
		exp string
	}{
		{"nats://myserver.com", "nats://myserver.com:4222"},
		{"myserver.com:5000", "nats://myserver.com:5000"},
		{"ws://myserver.com:8080", "ws://myserver.com:8080"},
		{"ws://myserver.com", "ws://myserver.com:80"},
		{"wss://myserver.com", "wss://myserver.com:443"},
		{"wsss://myserver.com", "wsss://myserver.com:4222"},
		{"nats://a, nats://b:4333", "nats://a:4222,nats://b:4333"},
	}

	for _, test := range tests {
		s, err := ServerURL(test.in)
		if err != nil {
			t.Errorf("Error normalizing %v: %v", test.in, err)
		}

		if s != test.exp {
			t.Errorf("Error normalizing %v, got %v, expected %v", test.in, s, test.exp)
		}
	}
}

func TestServerURLError(t *testing.T) {
	for _, in := range []string{"nats:/myserver.com", "", "nats://:4222", "a,,b"} {
		if _, err := ServerURL(in); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}
