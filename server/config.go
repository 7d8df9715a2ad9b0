package server

import (
	"net"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/nczempin/kurai-httpd/protocol"
	"github.com/nczempin/kurai-httpd/transport"
)

// Config holds everything the accept loop needs
type Config struct {
	Domain    int
	Type      int
	Protocol  int
	Interface net.IP
	Port      int
	Path      string
	Backlog   int

	Engine         transport.EngineKind
	ReadMode       protocol.ReadMode
	BufferSize     int
	MaxRequestSize int

	Handler Handler
	Logger  zerolog.Logger
}

// DefaultConfig returns the fixed process settings: IPv4 stream socket on
// port 8080 bound to every interface, backlog 10, 4096 byte receive buffer.
func DefaultConfig() Config {
	return Config{
		Domain:         unix.AF_INET,
		Type:           unix.SOCK_STREAM,
		Protocol:       0,
		Interface:      net.IPv4zero,
		Port:           8080,
		Backlog:        10,
		Engine:         transport.EngineSyscall,
		ReadMode:       protocol.ReadModeComplete,
		BufferSize:     protocol.DefaultBufferSize,
		MaxRequestSize: protocol.DefaultMaxRequestSize,
		Handler:        DefaultHandler(),
		Logger:         zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

func (c Config) listenConfig() transport.ListenConfig {
	return transport.ListenConfig{
		Domain:    c.Domain,
		Type:      c.Type,
		Protocol:  c.Protocol,
		Interface: c.Interface,
		Port:      c.Port,
		Path:      c.Path,
		Backlog:   c.Backlog,
	}
}

func (c Config) readOptions() protocol.ReadOptions {
	return protocol.ReadOptions{
		Mode:           c.ReadMode,
		BufferSize:     c.BufferSize,
		MaxRequestSize: c.MaxRequestSize,
	}
}
