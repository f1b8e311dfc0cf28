package tcp

import (
	"net"
	"time"
)

// Client wraps a connection with per-read deadlines and a reused scratch
// buffer, so the read loop above it never allocates per call.
type Client interface {
	// Read returns a view into the scratch buffer holding whatever the
	// peer sent, valid until the next Read call. Timeouts surface as
	// net.Error with Timeout() == true, peer shutdown as io.EOF.
	Read() ([]byte, error)
	Write(p []byte) (int, error)
	Remote() net.Addr
	// Conn exposes the underlying connection for zero-copy writes.
	Conn() net.Conn
	Close() error
}

type client struct {
	conn    net.Conn
	timeout time.Duration
	scratch []byte
}

// NewClient wraps conn. Every Read arms a fresh deadline of timeout and
// reads into scratch.
func NewClient(conn net.Conn, timeout time.Duration, scratch []byte) Client {
	return &client{
		conn:    conn,
		timeout: timeout,
		scratch: scratch,
	}
}

func (c *client) Read() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.scratch)

	return c.scratch[:n], err
}

func (c *client) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Conn() net.Conn {
	return c.conn
}

func (c *client) Close() error {
	return c.conn.Close()
}
