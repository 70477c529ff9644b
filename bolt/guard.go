package bolt

import "sync"

// guardedConnection serialises operations on the wrapped connection.
// Callers may share a connection across goroutines; the underlying raw
// connection is not assumed to be thread safe, so every operation holds
// the per-connection mutex. Close is idempotent and fires the release
// hook at most once.
type guardedConnection struct {
	mu       sync.Mutex
	delegate Connection
	closed   bool
	onClose  func()
}

func newGuardedConnection(delegate Connection, onClose func()) *guardedConnection {
	return &guardedConnection{delegate: delegate, onClose: onClose}
}

func (g *guardedConnection) Init(userAgent string, credentials map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delegate.Init(userAgent, credentials)
}

func (g *guardedConnection) ServerAddress() ServerAddress {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delegate.ServerAddress()
}

func (g *guardedConnection) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	err := g.delegate.Close()
	if g.onClose != nil {
		g.onClose()
	}
	return err
}
