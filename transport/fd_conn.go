package transport

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/nczempin/kurai-httpd/errors"
)

// SyscallEngine wraps accepted fds in blocking read/write connections
type SyscallEngine struct{}

// Wrap implements Engine
func (SyscallEngine) Wrap(fd int, peer net.Addr) Conn {
	return &FdConn{fd: fd, peer: peer}
}

// Close implements Engine
func (SyscallEngine) Close() error {
	return nil
}

// FdConn is an accepted socket driven by plain system calls
type FdConn struct {
	fd   int
	peer net.Addr
}

// Write sends data with a single write call
func (c *FdConn) Write(buf []byte) (int, error) {
	if c.fd < 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	for {
		n, err := unix.Write(c.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EPIPE || err == unix.ECONNRESET {
				return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "write failed", err)
			}
			return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
		}
		return n, nil
	}
}

// Read receives data with a single read call
func (c *FdConn) Read(buf []byte) (int, error) {
	if c.fd < 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	for {
		n, err := unix.Read(c.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
		}
		if n == 0 && len(buf) > 0 {
			return 0, errors.NewTransportError(
				errors.TransportErrorConnectionClosed,
				"connection closed by peer",
				nil,
			)
		}
		return n, nil
	}
}

// Close closes the socket. Calling it again is a no-op.
func (c *FdConn) Close() error {
	if c.fd < 0 {
		return nil
	}

	fd := c.fd
	c.fd = -1
	if err := unix.Close(fd); err != nil {
		return errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"failed to close socket",
			err,
		)
	}
	return nil
}

// RemoteAddr implements Conn
func (c *FdConn) RemoteAddr() net.Addr {
	return c.peer
}
