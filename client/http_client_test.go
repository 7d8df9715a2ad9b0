package client

import (
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/nczempin/kurai-httpd/errors"
	"github.com/nczempin/kurai-httpd/protocol"
)

// setupTestServer creates a one-shot server that records the request and
// answers with a canned response
func setupTestServer(t *testing.T, response string) (*HttpClient, <-chan []byte) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// The client half-closes after writing
		buf, _ := io.ReadAll(conn)
		received <- buf
		conn.Write([]byte(response))
	}()

	return NewHttpClient("tcp", listener.Addr().String()), received
}

func TestHttpClient_Get(t *testing.T) {
	responseBody := "Hello, World!"
	response := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(responseBody), responseBody)
	client, received := setupTestServer(t, response)

	reply, err := client.Get(&protocol.HttpRequest{
		URI:     "/test",
		Headers: protocol.HttpHeaders{{Key: "Host", Value: "localhost"}},
	})
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}

	if got := string(<-received); got != "GET /test HTTP/1.1\r\nHost: localhost\r\n\r\n" {
		t.Errorf("Unexpected request bytes %q", got)
	}

	if reply.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", reply.StatusCode)
	}

	if string(reply.Body) != responseBody {
		t.Errorf("Expected body %q, got %q", responseBody, string(reply.Body))
	}
}

func TestHttpClient_Post(t *testing.T) {
	responseBody := "Created"
	response := fmt.Sprintf("HTTP/1.1 201 Created\r\nContent-Length: %d\r\n\r\n%s", len(responseBody), responseBody)
	client, received := setupTestServer(t, response)

	postBody := []byte("test data")
	reply, err := client.Post(&protocol.HttpRequest{
		URI: "/create",
		Headers: protocol.HttpHeaders{
			{Key: "Host", Value: "localhost"},
			{Key: "Content-Length", Value: fmt.Sprintf("%d", len(postBody))},
		},
		Body: postBody,
	})
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}

	want := "POST /create HTTP/1.1\r\nHost: localhost\r\nContent-Length: 9\r\n\r\ntest data"
	if got := string(<-received); got != want {
		t.Errorf("Expected request %q, got %q", want, got)
	}

	if reply.StatusCode != 201 || reply.StatusMessage != "Created" {
		t.Errorf("Expected 201 Created, got %d %s", reply.StatusCode, reply.StatusMessage)
	}
}

func TestHttpClient_GetWithBody_ReturnsError(t *testing.T) {
	client := NewHttpClient("tcp", "127.0.0.1:1")

	_, err := client.Get(&protocol.HttpRequest{
		URI:  "/test",
		Body: []byte("should not have body"),
	})
	if !errors.IsType(err, errors.ErrorInvalidArgument) {
		t.Errorf("Expected invalid argument error, got %v", err)
	}
}

func TestHttpClient_PostWithoutContentLength_ReturnsError(t *testing.T) {
	client := NewHttpClient("tcp", "127.0.0.1:1")

	_, err := client.Post(&protocol.HttpRequest{
		URI:     "/test",
		Body:    []byte("test body"),
		Headers: protocol.HttpHeaders{{Key: "Host", Value: "localhost"}},
	})
	if !errors.IsType(err, errors.ErrorInvalidArgument) {
		t.Errorf("Expected invalid argument error, got %v", err)
	}
}

func TestParseReply(t *testing.T) {
	reply, err := ParseReply([]byte("HTTP/1.1 404 Not Found\r\nX-A: 1\r\nX-A:2\r\n\r\nmissing"))
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}

	if reply.StatusCode != 404 || reply.StatusMessage != "Not Found" {
		t.Errorf("Expected 404 Not Found, got %d %q", reply.StatusCode, reply.StatusMessage)
	}
	if got := reply.Headers.Values("X-A"); len(got) != 2 || got[1] != "2" {
		t.Errorf("Unexpected headers %v", got)
	}
	if string(reply.Body) != "missing" {
		t.Errorf("Expected body %q, got %q", "missing", reply.Body)
	}
}

func TestParseReply_Failures(t *testing.T) {
	for _, raw := range []string{"", "HTTP/1.1 200 OK\r\n", "HTTP/1.1\r\n\r\n", "HTTP/1.1 abc OK\r\n\r\n"} {
		_, err := ParseReply([]byte(raw))
		if !errors.IsProtocol(err, errors.ProtocolErrorInvalidStatusLine) {
			t.Errorf("ParseReply(%q): expected InvalidStatusLine, got %v", raw, err)
		}
	}
}
