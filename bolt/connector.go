package bolt

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Manny27nyc/neobolt/auth"
	"github.com/Manny27nyc/neobolt/config"
	"github.com/Manny27nyc/neobolt/internal/logging"
	"github.com/Manny27nyc/neobolt/security"
	"github.com/Manny27nyc/neobolt/telemetry"
)

// Connector produces one authenticated, guarded connection per Connect
// call. Concurrent calls share only the immutable settings and security
// plan; each call exclusively owns its raw connection until it is either
// closed on a failure path or wrapped and handed to the caller.
type Connector struct {
	settings         ConnectionSettings
	plan             security.Plan
	logger           zerolog.Logger
	collector        telemetry.Collector
	createConnection ConnectionFactory
}

// Option customises a Connector during construction.
type Option func(*Connector) error

// WithLogger provides a custom logger instance for the connector.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Connector) error {
		if c == nil {
			return nil
		}
		c.logger = logger
		return nil
	}
}

// WithTelemetry injects a collector instance for connect metrics.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(c *Connector) error {
		if c == nil {
			return nil
		}
		if collector == nil {
			collector = telemetry.Noop()
		}
		c.collector = collector
		return nil
	}
}

// WithConnectionFactory replaces the transport creation step, primarily
// so tests can exercise the orchestration without real sockets.
func WithConnectionFactory(factory ConnectionFactory) Option {
	return func(c *Connector) error {
		if c == nil {
			return nil
		}
		if factory == nil {
			return fmt.Errorf("connection factory must not be nil")
		}
		c.createConnection = factory
		return nil
	}
}

// NewConnector builds a connector from settings and a security plan.
func NewConnector(settings ConnectionSettings, plan security.Plan, opts ...Option) (*Connector, error) {
	connector := &Connector{
		settings:         settings,
		plan:             plan,
		logger:           zerolog.Nop(),
		collector:        telemetry.Noop(),
		createConnection: NewSocketFactory(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(connector); err != nil {
			return nil, err
		}
	}
	return connector, nil
}

// NewConnectorFromConfig builds a connector from a loaded client
// configuration, wiring up logging, telemetry and the security plan. The
// returned cleanup function flushes log shippers and must be called when
// the connector is no longer needed.
func NewConnectorFromConfig(cfg *config.ClientConfig, opts ...Option) (*Connector, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("client config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	plan, err := security.FromSettings(cfg.TLS)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	collector := telemetry.Noop()
	if cfg.Telemetry.Enabled {
		prom, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		collector = prom
	}
	settings := NewConnectionSettings(cfg.Auth.Token(), cfg.UserAgent, cfg.ConnectTimeout.Duration)
	base := []Option{WithLogger(logger), WithTelemetry(collector)}
	connector, err := NewConnector(settings, plan, append(base, opts...)...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return connector, cleanup, nil
}

// Connect establishes, authenticates and guards one connection to the
// given address. Transport failures propagate unchanged; any failure
// after the transport is open closes the raw connection before the error
// is returned, so callers never need to clean up a connection they never
// received.
func (c *Connector) Connect(address ServerAddress) (Connection, error) {
	c.collector.IncConnectAttempt(address.String())
	connection, err := c.createConnection(address, c.plan, c.settings.ConnectTimeout(), c.logger)
	if err != nil {
		c.collector.IncConnectFailure(address.String(), "transport")
		c.logger.Debug().Err(err).Str("address", address.String()).Msg("transport creation failed")
		return nil, err
	}
	credentials, err := auth.CredentialMap(c.settings.Token())
	if err != nil {
		// Token validation happens after the transport is open, so the
		// freshly created connection still has to be released here.
		c.collector.IncConnectFailure(address.String(), "auth")
		c.closeQuietly(connection, address)
		return nil, err
	}
	if err := connection.Init(c.settings.UserAgent(), credentials); err != nil {
		c.collector.IncConnectFailure(address.String(), "handshake")
		c.closeQuietly(connection, address)
		return nil, err
	}
	c.collector.AddOpenConnections(address.String(), 1)
	c.logger.Debug().Str("address", address.String()).Msg("connection established")
	return newGuardedConnection(connection, func() {
		c.collector.AddOpenConnections(address.String(), -1)
	}), nil
}

// closeQuietly releases a connection on a failure path. A close error is
// suppressed so the original failure stays visible; it is only logged.
func (c *Connector) closeQuietly(connection Connection, address ServerAddress) {
	if err := connection.Close(); err != nil {
		c.logger.Warn().Err(err).Str("address", address.String()).Msg("failed to close connection after connect error")
	}
}
