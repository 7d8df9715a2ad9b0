package transport

import (
	"net"

	"github.com/godzie44/go-uring/uring"
	"golang.org/x/sys/unix"

	"github.com/nczempin/kurai-httpd/errors"
)

// GoUringEngine drives accepted connections through godzie44/go-uring
type GoUringEngine struct {
	ring *uring.Ring
}

// NewGoUringEngine creates a ring with queue depth of 32
func NewGoUringEngine() (*GoUringEngine, error) {
	ring, err := uring.New(32)
	if err != nil {
		return nil, errors.NewTransportError(
			errors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}
	return &GoUringEngine{ring: ring}, nil
}

// Wrap implements Engine
func (e *GoUringEngine) Wrap(fd int, peer net.Addr) Conn {
	return &UringConnV2{ring: e.ring, fd: fd, peer: peer}
}

// Close releases the ring
func (e *GoUringEngine) Close() error {
	if e.ring == nil {
		return nil
	}
	err := e.ring.Close()
	e.ring = nil
	return err
}

// UringConnV2 is an accepted socket using read/write SQEs on a go-uring ring
type UringConnV2 struct {
	ring *uring.Ring
	fd   int
	peer net.Addr
}

// submit queues one operation through queue and waits for its completion
func (c *UringConnV2) submit(queue func() error, failure errors.TransportError, what string) (int, error) {
	if err := queue(); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to queue "+what+" request",
			err,
		)
	}

	if _, err := c.ring.Submit(); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit "+what+" request",
			err,
		)
	}

	cqe, err := c.ring.WaitCQEvents(1)
	if err != nil {
		return 0, errors.NewTransportError(
			failure,
			"failed to wait for "+what+" completion",
			err,
		)
	}

	if err := cqe.Error(); err != nil {
		c.ring.SeenCQE(cqe)
		return 0, errors.NewTransportError(failure, what+" operation failed", err)
	}

	n := int(cqe.Res)
	c.ring.SeenCQE(cqe)
	return n, nil
}

// Write queues one write operation
func (c *UringConnV2) Write(buf []byte) (int, error) {
	if c.fd < 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	queue := func() error {
		return c.ring.QueueSQE(uring.Write(uintptr(c.fd), buf, 0), 0, 0)
	}
	return c.submit(queue, errors.TransportErrorSocketWriteFailure, "write")
}

// Read queues one read operation
func (c *UringConnV2) Read(buf []byte) (int, error) {
	if c.fd < 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	queue := func() error {
		return c.ring.QueueSQE(uring.Read(uintptr(c.fd), buf, 0), 0, 0)
	}
	n, err := c.submit(queue, errors.TransportErrorSocketReadFailure, "read")
	if err != nil {
		return 0, err
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

// Close closes the socket; the ring stays with the engine
func (c *UringConnV2) Close() error {
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
func (c *UringConnV2) RemoteAddr() net.Addr {
	return c.peer
}
