package nats

import (
	"fmt"
	"strings"
)

var defaultPorts = map[string]string{
	"nats": "4222",
	"tls":  "4222",
	"ws":   "80",
	"wss":  "443",
}

// splitServer returns the scheme, host and port of a server URL. A
// missing scheme defaults to nats.
func splitServer(server string) (string, string, string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", "", "", fmt.Errorf("empty NATS server")
	}

	scheme := "nats"
	if i := strings.Index(server, "://"); i >= 0 {
		scheme = server[:i]
		server = server[i+3:]
	} else if strings.Contains(server, ":/") {
		return "", "", "", fmt.Errorf("malformed NATS server %v", server)
	}

	host, port, _ := strings.Cut(server, ":")
	if host == "" {
		return "", "", "", fmt.Errorf("NATS server %v has no host", server)
	}

	return scheme, host, port, nil
}

// ServerURL normalizes a comma separated list of NATS servers. Each
// entry gets a scheme and the default port of that scheme.
func ServerURL(servers string) (string, error) {
	var ret []string
	for _, s := range strings.Split(servers, ",") {
		scheme, host, port, err := splitServer(s)
		if err != nil {
			return servers, err
		}

		if port == "" {
			port = defaultPorts[scheme]
			if port == "" {
				port = "4222"
			}
		}

		ret = append(ret, fmt.Sprintf("%v://%v:%v", scheme, host, port))
	}

	return strings.Join(ret, ","), nil
}
