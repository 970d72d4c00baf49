package smb2engine

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hirochachacha/go-smb2"
)

// dialInfo is everything needed to establish one connection to a share.
type dialInfo struct {
	addr     string // host:port
	share    string
	domain   string
	username string
	password string
	ntHash   []byte // non-nil overrides password
}

// connectionPool manages connections to one share.
type connectionPool struct {
	config *Config
	dial   dialInfo

	mu          sync.Mutex
	connections []*pooledConn
	waiters     []chan *pooledConn
	numOpen     int
	closed      bool
}

// pooledConn wraps an SMB session and mounted share with metadata.
type pooledConn struct {
	session  *smb2.Session
	share    *smb2.Share
	lastUsed time.Time
	inUse    bool
	mu       sync.Mutex
}

func newConnectionPool(config *Config, dial dialInfo) *connectionPool {
	return &connectionPool{
		config:      config,
		dial:        dial,
		connections: make([]*pooledConn, 0, config.MaxOpen),
	}
}

// get acquires a connection, reusing an idle one when possible.
func (p *connectionPool) get(ctx context.Context) (*pooledConn, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	for i, conn := range p.connections {
		if !conn.inUse {
			if time.Since(conn.lastUsed) < p.config.IdleTimeout {
				conn.inUse = true
				conn.lastUsed = time.Now()
				p.mu.Unlock()
				return conn, nil
			}

			// Connection expired, close and remove it
			p.connections = append(p.connections[:i], p.connections[i+1:]...)
			p.numOpen--
			go conn.close()
		}
	}

	if p.numOpen < p.config.MaxOpen {
		p.numOpen++
		p.mu.Unlock()

		conn, err := p.createConnection(ctx)
		if err != nil {
			p.mu.Lock()
			p.numOpen--
			p.mu.Unlock()
			return nil, err
		}
		return conn, nil
	}

	// Wait for a connection to be returned
	waiter := make(chan *pooledConn, 1)
	p.waiters = append(p.waiters, waiter)
	p.mu.Unlock()

	select {
	case conn := <-waiter:
		if conn == nil {
			return nil, ErrPoolExhausted
		}
		return conn, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range p.waiters {
			if w == waiter {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		return nil, ctx.Err()
	case <-time.After(p.config.ConnTimeout):
		return nil, ErrPoolExhausted
	}
}

// put returns a connection to the pool.
func (p *connectionPool) put(conn *pooledConn) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		go conn.close()
		return
	}

	conn.inUse = false
	conn.lastUsed = time.Now()

	if len(p.waiters) > 0 {
		waiter := p.waiters[0]
		p.waiters = p.waiters[1:]
		conn.inUse = true
		waiter <- conn
		return
	}

	idleCount := 0
	for _, c := range p.connections {
		if !c.inUse {
			idleCount++
		}
	}
	if idleCount > p.config.MaxIdle {
		p.numOpen--
		for i, c := range p.connections {
			if c == conn {
				p.connections = append(p.connections[:i], p.connections[i+1:]...)
				break
			}
		}
		go conn.close()
	}
}

func (p *connectionPool) createConnection(ctx context.Context) (*pooledConn, error) {
	dialer := &net.Dialer{Timeout: p.config.ConnTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", p.dial.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", p.dial.addr, err)
	}

	initiator := &smb2.NTLMInitiator{
		User:   p.dial.username,
		Domain: p.dial.domain,
	}
	if p.dial.ntHash != nil {
		initiator.Hash = p.dial.ntHash
	} else {
		initiator.Password = p.dial.password
	}

	d := &smb2.Dialer{Initiator: initiator}
	session, err := d.Dial(netConn)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("session setup for %s failed: %w", p.dial.addr, err)
	}

	share, err := session.Mount(p.dial.share)
	if err != nil {
		session.Logoff()
		netConn.Close()
		return nil, fmt.Errorf("failed to mount share %s: %w", p.dial.share, err)
	}

	conn := &pooledConn{
		session:  session,
		share:    share,
		lastUsed: time.Now(),
		inUse:    true,
	}

	p.mu.Lock()
	p.connections = append(p.connections, conn)
	p.mu.Unlock()

	return conn, nil
}

func (pc *pooledConn) close() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.share != nil {
		pc.share.Umount()
		pc.share = nil
	}
	if pc.session != nil {
		pc.session.Logoff()
		pc.session = nil
	}
}

// Close shuts the pool down, closing every connection.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, waiter := range p.waiters {
		close(waiter)
	}
	p.waiters = nil

	for _, conn := range p.connections {
		go conn.close()
	}
	p.connections = nil
	p.numOpen = 0

	return nil
}
