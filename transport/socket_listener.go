package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	sockaddrnet "github.com/libp2p/go-sockaddr/net"
	"golang.org/x/sys/unix"

	"github.com/nczempin/kurai-httpd/errors"
)

// ListenConfig holds the socket parameters of a SocketListener
type ListenConfig struct {
	Domain    int    // unix.AF_INET, unix.AF_INET6 or unix.AF_UNIX
	Type      int    // unix.SOCK_STREAM
	Protocol  int    // 0 selects the default protocol
	Interface net.IP // address to bind for inet domains
	Port      int
	Path      string // socket path for AF_UNIX
	Backlog   int
}

// SocketListener is a listening socket created with socket/bind/listen
type SocketListener struct {
	fd     int
	cfg    ListenConfig
	engine Engine
	closed atomic.Bool

	// held shared by Accept while it uses fd, exclusively by Close before
	// the descriptor is released
	fdMu sync.RWMutex
}

// Listen creates, binds and listens on a socket. Every failure is a setup error.
// The listener owns engine and closes it on Close.
func Listen(cfg ListenConfig, engine Engine) (*SocketListener, error) {
	sa, err := bindAddress(cfg)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(cfg.Domain, cfg.Type|unix.SOCK_CLOEXEC, cfg.Protocol)
	if err != nil {
		return nil, errors.NewSetupError(
			errors.TransportErrorSocketCreateFailure,
			"failed to create socket",
			err,
		)
	}

	if cfg.Domain != unix.AF_UNIX {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, errors.NewSetupError(
				errors.TransportErrorSocketCreateFailure,
				"failed to set SO_REUSEADDR",
				err,
			)
		}
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.NewSetupError(
			errors.TransportErrorSocketBindFailure,
			fmt.Sprintf("failed to bind %s", describe(cfg)),
			err,
		)
	}

	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		unix.Close(fd)
		return nil, errors.NewSetupError(
			errors.TransportErrorSocketListenFailure,
			"failed to listen on socket",
			err,
		)
	}

	if engine == nil {
		engine = SyscallEngine{}
	}

	return &SocketListener{fd: fd, cfg: cfg, engine: engine}, nil
}

func bindAddress(cfg ListenConfig) (unix.Sockaddr, error) {
	switch cfg.Domain {
	case unix.AF_UNIX:
		if cfg.Path == "" {
			return nil, errors.NewSetupError(errors.TransportErrorSocketBindFailure, "empty unix socket path", nil)
		}
		return &unix.SockaddrUnix{Name: cfg.Path}, nil
	case unix.AF_INET, unix.AF_INET6:
		ip := cfg.Interface
		if ip == nil {
			ip = net.IPv4zero
			if cfg.Domain == unix.AF_INET6 {
				ip = net.IPv6zero
			}
		}
		sa := sockaddrnet.TCPAddrToSockaddr(&net.TCPAddr{IP: ip, Port: cfg.Port})
		if sa == nil {
			return nil, errors.NewSetupError(
				errors.TransportErrorSocketBindFailure,
				fmt.Sprintf("unusable interface address %s", ip),
				nil,
			)
		}
		return sa, nil
	default:
		return nil, errors.NewSetupError(
			errors.TransportErrorSocketCreateFailure,
			fmt.Sprintf("unsupported address family %d", cfg.Domain),
			nil,
		)
	}
}

func describe(cfg ListenConfig) string {
	if cfg.Domain == unix.AF_UNIX {
		return cfg.Path
	}
	return fmt.Sprintf("%s:%d", cfg.Interface, cfg.Port)
}

// Accept blocks until a peer connects and wraps it with the listener's engine
func (l *SocketListener) Accept() (Conn, error) {
	l.fdMu.RLock()
	defer l.fdMu.RUnlock()

	for {
		if l.closed.Load() {
			return nil, errors.NewTransportError(
				errors.TransportErrorSocketAcceptFailure,
				"listener closed",
				net.ErrClosed,
			)
		}

		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
		if err == unix.EINTR || err == unix.ECONNABORTED {
			continue
		}
		if err != nil {
			if l.closed.Load() {
				err = net.ErrClosed
			}
			return nil, errors.NewTransportError(
				errors.TransportErrorSocketAcceptFailure,
				"accept failed",
				err,
			)
		}

		return l.engine.Wrap(nfd, peerAddr(sa)), nil
	}
}

func peerAddr(sa unix.Sockaddr) net.Addr {
	if sa == nil {
		return nil
	}
	if addr := sockaddrnet.SockaddrToTCPAddr(sa); addr != nil {
		return addr
	}
	if ua, ok := sa.(*unix.SockaddrUnix); ok {
		return &net.UnixAddr{Name: ua.Name, Net: "unix"}
	}
	return nil
}

// Close shuts the socket down, which wakes a blocked Accept, then releases
// the socket and the engine. The descriptor is closed only after Accept has
// returned so its number cannot be reused underneath an accept call.
func (l *SocketListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	unix.Shutdown(l.fd, unix.SHUT_RDWR)

	l.fdMu.Lock()
	defer l.fdMu.Unlock()

	err := unix.Close(l.fd)
	if engineErr := l.engine.Close(); err == nil {
		err = engineErr
	}
	if l.cfg.Domain == unix.AF_UNIX {
		unix.Unlink(l.cfg.Path)
	}
	if err != nil {
		return errors.NewTransportError(errors.TransportErrorConnectionClosed, "failed to close listener", err)
	}
	return nil
}

// Addr returns the bound address, resolving an ephemeral port
func (l *SocketListener) Addr() net.Addr {
	if l.cfg.Domain == unix.AF_UNIX {
		return &net.UnixAddr{Name: l.cfg.Path, Net: "unix"}
	}
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return &net.TCPAddr{IP: l.cfg.Interface, Port: l.cfg.Port}
	}
	return sockaddrnet.SockaddrToTCPAddr(sa)
}
