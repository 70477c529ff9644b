// Package bolt turns a bare server address into a single authenticated,
// concurrency guarded connection. It owns the connect orchestration:
// opening the transport according to the security plan, validating and
// converting the auth token, sending the init handshake and guaranteeing
// that no socket leaks when any step fails.
package bolt

import (
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Manny27nyc/neobolt/auth"
	"github.com/Manny27nyc/neobolt/security"
)

// Version identifies this library release.
const Version = "0.9.0"

// DefaultUserAgent is sent with the init handshake when the caller does
// not configure an agent string.
const DefaultUserAgent = "neobolt/" + Version

// DefaultPort is the well-known bolt server port.
const DefaultPort = 7687

// ServerAddress identifies a remote bolt endpoint. It is an immutable
// value and never mutated by the connect layer.
type ServerAddress struct {
	Host string
	Port int
}

// NewServerAddress builds an address from host and port.
func NewServerAddress(host string, port int) ServerAddress {
	return ServerAddress{Host: host, Port: port}
}

// LocalDefault returns the address of a server running locally on the
// default port.
func LocalDefault() ServerAddress {
	return ServerAddress{Host: "localhost", Port: DefaultPort}
}

// String renders the address as host:port.
func (a ServerAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Connection is an open transport handle capable of the init handshake.
// A connection returned by Connector.Connect has already completed the
// handshake and serialises concurrent use; a connection produced by a
// ConnectionFactory is raw and owned by the Connector until the handshake
// either succeeds or the connection is closed.
type Connection interface {
	// Init sends the handshake carrying the client identity and the
	// credential mapping. It is called exactly once per connection.
	Init(userAgent string, credentials map[string]any) error

	// ServerAddress reports the peer address of the connection.
	ServerAddress() ServerAddress

	// Close releases the transport. It is safe to call on a connection
	// that never completed the handshake.
	Close() error
}

// ConnectionFactory creates the raw transport for an address. It is a
// replaceable step so connect orchestration can be exercised without real
// sockets.
type ConnectionFactory func(address ServerAddress, plan security.Plan, timeout time.Duration, logger zerolog.Logger) (Connection, error)

// ConnectionSettings bundle the immutable per-client connect parameters.
// One value is shared read-only across concurrent connect calls.
type ConnectionSettings struct {
	token          auth.Token
	userAgent      string
	connectTimeout time.Duration
}

// NewConnectionSettings builds connection settings, substituting the
// default user agent and clamping negative timeouts to zero (no timeout).
func NewConnectionSettings(token auth.Token, userAgent string, connectTimeout time.Duration) ConnectionSettings {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if connectTimeout < 0 {
		connectTimeout = 0
	}
	return ConnectionSettings{token: token, userAgent: userAgent, connectTimeout: connectTimeout}
}

// Token returns the configured auth token.
func (s ConnectionSettings) Token() auth.Token {
	return s.token
}

// UserAgent returns the agent string sent with the handshake.
func (s ConnectionSettings) UserAgent() string {
	return s.userAgent
}

// ConnectTimeout returns the transport establishment timeout; zero means
// no bound.
func (s ConnectionSettings) ConnectTimeout() time.Duration {
	return s.connectTimeout
}
