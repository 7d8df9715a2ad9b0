package transport

import "net"

// Conn is one accepted connection
type Conn interface {
	// Read receives data from the peer
	// Returns the number of bytes read
	Read(buf []byte) (int, error)

	// Write performs a single send and may transmit fewer bytes than len(buf)
	// Returns the number of bytes written
	Write(buf []byte) (int, error)

	// Close closes the connection
	Close() error

	// RemoteAddr returns the peer address, or nil when unknown
	RemoteAddr() net.Addr
}

// Listener hands out accepted connections
type Listener interface {
	// Accept blocks until a peer connects
	Accept() (Conn, error)

	// Close stops listening and unblocks a pending Accept
	Close() error

	// Addr returns the bound address
	Addr() net.Addr
}
