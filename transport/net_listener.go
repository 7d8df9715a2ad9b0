package transport

import (
	stderrors "errors"
	"io"
	"net"
	"syscall"

	"github.com/nczempin/kurai-httpd/errors"
)

// NetListener adapts a net.Listener, for platforms or tests where raw
// sockets are not wanted
type NetListener struct {
	ln net.Listener
}

// ListenNet listens on a "tcp" or "unix" address through the net package
func ListenNet(network, address string) (*NetListener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, errors.NewSetupError(
			errors.TransportErrorSocketListenFailure,
			"failed to listen on "+network+" "+address,
			err,
		)
	}
	return &NetListener{ln: ln}, nil
}

// NewNetListener wraps an existing net.Listener
func NewNetListener(ln net.Listener) *NetListener {
	return &NetListener{ln: ln}
}

// Accept implements Listener
func (l *NetListener) Accept() (Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, errors.NewTransportError(errors.TransportErrorSocketAcceptFailure, "accept failed", err)
	}

	// Set TCP_NODELAY to disable Nagle's algorithm for lower latency
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	return &NetConn{conn: conn}, nil
}

// Close implements Listener
func (l *NetListener) Close() error {
	return l.ln.Close()
}

// Addr implements Listener
func (l *NetListener) Addr() net.Addr {
	return l.ln.Addr()
}

// NetConn wraps a net.Conn
type NetConn struct {
	conn net.Conn
}

// Write sends data over the connection.
// net.Conn.Write already loops internally, so a short count always comes with an error.
func (c *NetConn) Write(buf []byte) (int, error) {
	if c.conn == nil {
		return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed", nil)
	}

	n, err := c.conn.Write(buf)
	if err != nil {
		// Check for broken pipe or connection reset
		if stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, syscall.ECONNRESET) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "write failed", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	return n, nil
}

// Read receives data from the connection
func (c *NetConn) Read(buf []byte) (int, error) {
	if c.conn == nil {
		return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed", nil)
	}

	n, err := c.conn.Read(buf)
	if err != nil {
		if stderrors.Is(err, io.EOF) || (n == 0 && len(buf) > 0) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed by peer", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}

	return n, nil
}

// Close closes the connection. Calling it again is a no-op.
func (c *NetConn) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil

	if err != nil {
		return errors.NewTransportError(errors.TransportErrorConnectionClosed, "failed to close socket", err)
	}

	return nil
}

// RemoteAddr implements Conn
func (c *NetConn) RemoteAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}
