package client

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/nczempin/kurai-httpd/errors"
	"github.com/nczempin/kurai-httpd/protocol"
)

var (
	crlf            = []byte("\r\n")
	headerSeparator = []byte("\r\n\r\n")
)

// HttpReply is a response read back from a server
type HttpReply struct {
	Version       string
	StatusCode    int
	StatusMessage string
	Headers       protocol.HttpHeaders
	Body          []byte
}

// HttpClient performs one exchange per connection, matching a server that
// closes after every response
type HttpClient struct {
	network string
	address string
}

// NewHttpClient creates a client for the given network address
func NewHttpClient(network, address string) *HttpClient {
	return &HttpClient{network: network, address: address}
}

// Get performs a GET request
func (c *HttpClient) Get(req *protocol.HttpRequest) (*HttpReply, error) {
	if len(req.Body) > 0 {
		return nil, errors.NewInvalidArgumentError("GET request cannot have a body")
	}
	req.Method = "GET"
	return c.Do(req)
}

// Post performs a POST request
func (c *HttpClient) Post(req *protocol.HttpRequest) (*HttpReply, error) {
	if err := validatePostRequest(req); err != nil {
		return nil, err
	}
	req.Method = "POST"
	return c.Do(req)
}

// Do sends req and reads the reply until the server closes the connection
func (c *HttpClient) Do(req *protocol.HttpRequest) (*HttpReply, error) {
	return c.DoRaw(BuildRequest(req))
}

// DoRaw sends raw bytes as-is, which allows malformed requests
func (c *HttpClient) DoRaw(raw []byte) (*HttpReply, error) {
	conn, err := net.Dial(c.network, c.address)
	if err != nil {
		return nil, errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "dial failed", err)
	}
	defer conn.Close()

	if _, err := conn.Write(raw); err != nil {
		return nil, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	// Half-close so the server sees the end of a request it cannot frame
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}

	buf, err := io.ReadAll(conn)
	if err != nil {
		return nil, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}

	return ParseReply(buf)
}

// BuildRequest formats an HTTP request
func BuildRequest(req *protocol.HttpRequest) []byte {
	method := req.Method
	if method == "" {
		method = protocol.DefaultMethod
	}
	uri := req.URI
	if uri == "" {
		uri = protocol.DefaultURI
	}
	version := req.Version
	if version == "" {
		version = protocol.DefaultVersion
	}

	var buf bytes.Buffer

	// Request line
	fmt.Fprintf(&buf, "%s %s %s\r\n", method, uri, version)

	// Headers
	for _, header := range req.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", header.Key, header.Value)
	}

	// Blank line
	buf.Write(crlf)

	buf.Write(req.Body)
	return buf.Bytes()
}

// ParseReply parses a complete response buffer
func ParseReply(buf []byte) (*HttpReply, error) {
	if len(buf) == 0 {
		return nil, errors.NewProtocolError(
			errors.ProtocolErrorInvalidStatusLine,
			"connection closed without a response",
		)
	}

	headerEnd := bytes.Index(buf, headerSeparator)
	if headerEnd < 0 {
		return nil, errors.NewProtocolError(
			errors.ProtocolErrorInvalidStatusLine,
			"no headers found",
		)
	}

	// Split into status line and rest of headers
	parts := bytes.SplitN(buf[:headerEnd], crlf, 2)

	// Parse status line: "HTTP/1.1 200 OK"
	statusParts := bytes.SplitN(parts[0], []byte(" "), 3)
	if len(statusParts) < 2 {
		return nil, errors.NewProtocolError(
			errors.ProtocolErrorInvalidStatusLine,
			"invalid status line format",
		)
	}

	statusCode, err := strconv.Atoi(string(statusParts[1]))
	if err != nil {
		return nil, errors.NewProtocolError(
			errors.ProtocolErrorInvalidStatusLine,
			fmt.Sprintf("invalid status code: %s", statusParts[1]),
		)
	}

	reply := &HttpReply{
		Version:    string(statusParts[0]),
		StatusCode: statusCode,
	}
	if len(statusParts) >= 3 {
		reply.StatusMessage = string(statusParts[2])
	}

	if len(parts) > 1 {
		for _, line := range bytes.Split(parts[1], crlf) {
			headerParts := bytes.SplitN(line, []byte(":"), 2)
			if len(headerParts) == 2 {
				reply.Headers.Add(string(headerParts[0]), strings.TrimSpace(string(headerParts[1])))
			}
		}
	}

	body := buf[headerEnd+len(headerSeparator):]
	if cl, ok := reply.Headers.GetFold("Content-Length"); ok {
		if n, err := strconv.Atoi(cl); err == nil && n >= 0 && n < len(body) {
			body = body[:n]
		}
	}
	reply.Body = make([]byte, len(body))
	copy(reply.Body, body)

	return reply, nil
}

// validatePostRequest validates that a POST request has required fields
func validatePostRequest(req *protocol.HttpRequest) error {
	if len(req.Body) == 0 {
		return errors.NewInvalidArgumentError("POST request must have a body")
	}

	if _, ok := req.Headers.GetFold("Content-Length"); !ok {
		return errors.NewInvalidArgumentError("POST request must have Content-Length header")
	}

	return nil
}
