package bolt

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sequencedConnection struct {
	address  ServerAddress
	inFlight atomic.Int32
	overlaps atomic.Int32
	calls    atomic.Int32
	closes   int
}

func (s *sequencedConnection) Init(string, map[string]any) error {
	if s.inFlight.Add(1) > 1 {
		s.overlaps.Add(1)
	}
	s.calls.Add(1)
	time.Sleep(100 * time.Microsecond)
	s.inFlight.Add(-1)
	return nil
}

func (s *sequencedConnection) ServerAddress() ServerAddress { return s.address }

func (s *sequencedConnection) Close() error {
	s.closes++
	return nil
}

func TestGuardSerialisesConcurrentOperations(t *testing.T) {
	delegate := &sequencedConnection{address: LocalDefault()}
	guarded := newGuardedConnection(delegate, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, guarded.Init("agent", map[string]any{"scheme": "basic"}))
		}()
	}
	wg.Wait()

	require.Equal(t, int32(32), delegate.calls.Load())
	require.Equal(t, int32(0), delegate.overlaps.Load())
}

func TestGuardPassesThroughAddress(t *testing.T) {
	delegate := &sequencedConnection{address: NewServerAddress("db.example.com", 7687)}
	guarded := newGuardedConnection(delegate, nil)
	require.Equal(t, delegate.address, guarded.ServerAddress())
}

func TestGuardCloseIsIdempotent(t *testing.T) {
	delegate := &sequencedConnection{address: LocalDefault()}
	released := 0
	guarded := newGuardedConnection(delegate, func() { released++ })

	require.NoError(t, guarded.Close())
	require.NoError(t, guarded.Close())

	require.Equal(t, 1, delegate.closes)
	require.Equal(t, 1, released)
}
