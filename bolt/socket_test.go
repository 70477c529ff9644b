package bolt

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Manny27nyc/neobolt/security"
)

func listenerAddress(t *testing.T, ln net.Listener) ServerAddress {
	t.Helper()
	host, portRaw, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portRaw)
	require.NoError(t, err)
	return NewServerAddress(host, port)
}

// serveInit accepts one connection, decodes the init frame and answers
// with the given status code.
func serveInit(t *testing.T, ln net.Listener, status uint32, frames chan<- initPayload) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var magic [4]byte
		if _, err := io.ReadFull(conn, magic[:]); err != nil {
			return
		}
		var length [4]byte
		if _, err := io.ReadFull(conn, length[:]); err != nil {
			return
		}
		payload := make([]byte, binary.BigEndian.Uint32(length[:]))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		var decoded initPayload
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return
		}
		if frames != nil {
			frames <- decoded
		}
		var response [4]byte
		binary.BigEndian.PutUint32(response[:], status)
		_, _ = conn.Write(response[:])
	}()
}

func TestSocketFactoryConnectionFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listenerAddress(t, ln)
	require.NoError(t, ln.Close())

	factory := NewSocketFactory()
	_, err = factory(address, security.Insecure(), 500*time.Millisecond, zerolog.Nop())
	require.Error(t, err)
}

func TestSocketFactoryInitRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	frames := make(chan initPayload, 1)
	serveInit(t, ln, initAccepted, frames)

	factory := NewSocketFactory()
	address := listenerAddress(t, ln)
	connection, err := factory(address, security.Insecure(), time.Second, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, address, connection.ServerAddress())

	credentials := map[string]any{"scheme": "basic", "principal": "neo4j", "credentials": "neo4j"}
	require.NoError(t, connection.Init("tester", credentials))

	select {
	case frame := <-frames:
		require.Equal(t, "tester", frame.UserAgent)
		require.Equal(t, "neo4j", frame.Credentials["principal"])
	case <-time.After(time.Second):
		t.Fatal("expected init frame to reach the server")
	}

	require.NoError(t, connection.Close())
	require.NoError(t, connection.Close())
}

func TestSocketFactoryInitRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveInit(t, ln, 7, nil)

	factory := NewSocketFactory()
	connection, err := factory(listenerAddress(t, ln), security.Insecure(), time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer connection.Close()

	err = connection.Init("tester", map[string]any{"scheme": "basic"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 7")
}

func TestSocketFactoryInitTimesOutWithoutResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	factory := NewSocketFactory()
	connection, err := factory(listenerAddress(t, ln), security.Insecure(), 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	defer connection.Close()

	err = connection.Init("tester", map[string]any{"scheme": "basic"})
	require.Error(t, err)

	select {
	case conn := <-accepted:
		conn.Close()
	default:
	}
}

func TestSocketFactoryInitAfterCloseFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveInit(t, ln, initAccepted, nil)

	factory := NewSocketFactory()
	connection, err := factory(listenerAddress(t, ln), security.Insecure(), time.Second, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, connection.Close())

	err = connection.Init("tester", map[string]any{"scheme": "basic"})
	require.Error(t, err)
}
