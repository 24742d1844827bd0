package broker

import (
	"fmt"
	"net/url"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var (
	// Maximum time to wait for initial connection.
	connectTimeout = 10 * time.Second
	// Maximum time to wait for publish/subscribe acknowledgment.
	operationTimeout = 5 * time.Second
	// Time in milliseconds to wait for pending operations on disconnect.
	disconnectQuiesce uint = 250
	// Keepalive interval for the connection.
	keepAlive = 60 * time.Second

	// Maps URL scheme to paho scheme and default port.
	schemes = map[string]struct {
		scheme string
		port   string
	}{
		"mqtt":  {scheme: "tcp", port: "1883"},
		"tcp":   {scheme: "tcp", port: "1883"},
		"mqtts": {scheme: "ssl", port: "8883"},
		"ssl":   {scheme: "ssl", port: "8883"},
		"tls":   {scheme: "ssl", port: "8883"},
		"ws":    {scheme: "ws", port: "80"},
		"wss":   {scheme: "wss", port: "443"},
	}
)

// buildClientOptions creates paho options from Options.
//
// Auto reconnect is disabled, lost connection is fatal for the process.
// Will message marks entity offline in case we die without Shutdown().
func buildClientOptions(opts *Options) (*paho.ClientOptions, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	s, ok := schemes[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in %s", ErrInvalidURL, u.Redacted())
	}
	port := u.Port()
	if port == "" {
		port = s.port
	}
	server := fmt.Sprintf("%s://%s:%s", s.scheme, u.Hostname(), port)
	if s.scheme == "ws" || s.scheme == "wss" {
		server += u.Path
	}

	clientOpts := paho.NewClientOptions()
	clientOpts.AddBroker(server)
	clientOpts.SetClientID(opts.ClientID)

	username, password := opts.Username, opts.Password
	if username == "" && u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	if username != "" {
		clientOpts.SetUsername(username)
		clientOpts.SetPassword(password)
	}

	clientOpts.SetCleanSession(true)
	clientOpts.SetAutoReconnect(false)
	clientOpts.SetConnectRetry(false)
	clientOpts.SetOrderMatters(true)
	clientOpts.SetConnectTimeout(connectTimeout)
	clientOpts.SetKeepAlive(keepAlive)
	clientOpts.SetWill(opts.Topics.Availability(), offlinePayload, opts.QoS, true)

	return clientOpts, nil
}
