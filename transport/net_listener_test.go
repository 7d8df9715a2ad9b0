package transport

import (
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/nczempin/kurai-httpd/errors"
)

func setupNetListener(t *testing.T) *NetListener {
	t.Helper()

	l, err := ListenNet("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNetListener_Exchange(t *testing.T) {
	l := setupNetListener(t)
	client, conn := dialAndAccept(t, l)

	if _, ok := conn.(*NetConn); !ok {
		t.Fatalf("Expected *NetConn, got %T", conn)
	}

	exerciseConn(t, client, conn)
}

func TestNetListener_ListenFailure(t *testing.T) {
	_, err := ListenNet("tcp", "127.0.0.1:-1")
	if !errors.IsType(err, errors.ErrorSetup) {
		t.Errorf("Expected setup error, got %v", err)
	}
}

func TestNetConn_Close_Idempotent(t *testing.T) {
	l := setupNetListener(t)
	_, conn := dialAndAccept(t, l)

	// First close
	if err := conn.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}

	// Second close should also succeed
	if err := conn.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}

	if conn.RemoteAddr() != nil {
		t.Error("Closed connection should report no peer")
	}
}

func TestNetConn_Failure_AfterClose(t *testing.T) {
	l := setupNetListener(t)
	_, conn := dialAndAccept(t, l)
	conn.Close()

	_, err := conn.Write([]byte("test"))
	if !errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
		t.Errorf("Expected ConnectionClosed on write, got %v", err)
	}

	_, err = conn.Read(make([]byte, 8))
	if !errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
		t.Errorf("Expected ConnectionClosed on read, got %v", err)
	}
}

func TestNetConn_Write_Failure_PeerReset(t *testing.T) {
	l := setupNetListener(t)
	client, conn := dialAndAccept(t, l)

	// Set SO_LINGER to force RST on close
	if tcpConn, ok := client.(*net.TCPConn); ok {
		raw, err := tcpConn.SyscallConn()
		if err == nil {
			raw.Control(func(fd uintptr) {
				linger := syscall.Linger{Onoff: 1, Linger: 0}
				syscall.SetsockoptLinger(int(fd), syscall.SOL_SOCKET, syscall.SO_LINGER, &linger)
			})
		}
	}
	client.Close()

	// Wait for the RST to arrive
	time.Sleep(50 * time.Millisecond)

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		_, err = conn.Write([]byte("this should fail"))
	}
	if err == nil {
		t.Fatal("Expected error on write to reset connection")
	}

	httpErr, ok := err.(*errors.HttpError)
	if !ok {
		t.Fatalf("Expected *errors.HttpError, got %T", err)
	}
	if httpErr.Type != errors.ErrorTransport {
		t.Errorf("Expected transport error, got %v", httpErr)
	}
}
