package transport

import (
	"fmt"
	"net"
	"strings"

	"github.com/nczempin/kurai-httpd/errors"
)

// EngineKind selects how accepted connections perform I/O
type EngineKind int

const (
	// EngineSyscall uses blocking read(2)/write(2) on the accepted fd
	EngineSyscall EngineKind = iota
	// EngineIoUring submits recv/send through iceber/iouring-go
	EngineIoUring
	// EngineGoUring submits read/write through godzie44/go-uring
	EngineGoUring
)

func (k EngineKind) String() string {
	switch k {
	case EngineSyscall:
		return "syscall"
	case EngineIoUring:
		return "iouring"
	case EngineGoUring:
		return "gouring"
	default:
		return fmt.Sprintf("EngineKind(%d)", int(k))
	}
}

// ParseEngineKind maps an engine name back to its EngineKind
func ParseEngineKind(s string) (EngineKind, error) {
	switch strings.ToLower(s) {
	case "syscall", "":
		return EngineSyscall, nil
	case "iouring":
		return EngineIoUring, nil
	case "gouring":
		return EngineGoUring, nil
	default:
		return 0, errors.NewInvalidArgumentError(fmt.Sprintf("unknown engine %q", s))
	}
}

// Engine turns accepted file descriptors into connections.
// An engine lives as long as the listener that owns it.
type Engine interface {
	// Wrap takes ownership of fd
	Wrap(fd int, peer net.Addr) Conn

	// Close releases engine resources such as rings
	Close() error
}

// NewEngine creates the engine of the given kind
func NewEngine(kind EngineKind) (Engine, error) {
	switch kind {
	case EngineSyscall:
		return SyscallEngine{}, nil
	case EngineIoUring:
		return NewIoUringEngine()
	case EngineGoUring:
		return NewGoUringEngine()
	default:
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown engine %d", int(kind)))
	}
}
