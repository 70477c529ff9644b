package bolt

import (
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Manny27nyc/neobolt/security"
)

// Wire preamble announcing the bolt protocol on a fresh transport.
var handshakeMagic = [4]byte{0x60, 0x60, 0xB0, 0x17}

const initAccepted = 0

type initPayload struct {
	UserAgent   string         `json:"user_agent"`
	Credentials map[string]any `json:"credentials"`
}

// NewSocketFactory returns the production connection factory: a TCP dial
// bounded by the connect timeout, followed by a TLS client handshake when
// the plan requires encryption.
func NewSocketFactory() ConnectionFactory {
	return func(address ServerAddress, plan security.Plan, timeout time.Duration, logger zerolog.Logger) (Connection, error) {
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.Dial("tcp", address.String())
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		if plan.RequiresEncryption() {
			tlsConn := tls.Client(conn, plan.TLSConfig())
			if timeout > 0 {
				_ = tlsConn.SetDeadline(time.Now().Add(timeout))
			}
			if err := tlsConn.Handshake(); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("tls handshake with %s: %w", address, err)
			}
			_ = tlsConn.SetDeadline(time.Time{})
			conn = tlsConn
		}
		id := uuid.NewString()
		scoped := logger.With().Str("connection_id", id).Str("address", address.String()).Logger()
		scoped.Debug().Bool("encrypted", plan.RequiresEncryption()).Msg("transport established")
		return &socketConnection{id: id, conn: conn, address: address, timeout: timeout, logger: scoped}, nil
	}
}

// socketConnection is the raw transport handle. It is not safe for
// concurrent use; the connector wraps it in the concurrency guard before
// handing it to callers.
type socketConnection struct {
	id      string
	conn    net.Conn
	address ServerAddress
	timeout time.Duration
	logger  zerolog.Logger
	closed  bool
}

// Init writes the magic preamble and a length-prefixed init frame, then
// waits for the 4-byte status acknowledgement. The connect timeout also
// bounds the handshake round trip.
func (c *socketConnection) Init(userAgent string, credentials map[string]any) error {
	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}
	payload, err := json.Marshal(initPayload{UserAgent: userAgent, Credentials: credentials})
	if err != nil {
		return fmt.Errorf("encode init payload: %w", err)
	}
	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}
	frame := make([]byte, 0, len(handshakeMagic)+4+len(payload))
	frame = append(frame, handshakeMagic[:]...)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("send init to %s: %w", c.address, err)
	}
	var status [4]byte
	if _, err := io.ReadFull(c.conn, status[:]); err != nil {
		return fmt.Errorf("read init response from %s: %w", c.address, err)
	}
	if code := binary.BigEndian.Uint32(status[:]); code != initAccepted {
		return fmt.Errorf("init rejected by %s: status %d", c.address, code)
	}
	c.logger.Debug().Str("user_agent", userAgent).Msg("init accepted")
	return nil
}

func (c *socketConnection) ServerAddress() ServerAddress {
	return c.address
}

// Close releases the transport. Repeated closes are no-ops.
func (c *socketConnection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Debug().Msg("connection closed")
	return c.conn.Close()
}
