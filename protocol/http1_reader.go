package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nczempin/kurai-httpd/errors"
)

// ReadMode selects how many transport reads make up one request
type ReadMode int

const (
	// ReadModeComplete keeps reading until the header block and any
	// Content-Length body have arrived.
	ReadModeComplete ReadMode = iota
	// ReadModeSingle performs exactly one read into a fixed buffer.
	// Larger or fragmented requests are not reassembled.
	ReadModeSingle
)

func (m ReadMode) String() string {
	switch m {
	case ReadModeComplete:
		return "complete"
	case ReadModeSingle:
		return "single"
	default:
		return fmt.Sprintf("ReadMode(%d)", int(m))
	}
}

// ParseReadMode maps a mode name back to its ReadMode
func ParseReadMode(s string) (ReadMode, error) {
	switch strings.ToLower(s) {
	case "complete", "":
		return ReadModeComplete, nil
	case "single":
		return ReadModeSingle, nil
	default:
		return 0, errors.NewInvalidArgumentError(fmt.Sprintf("unknown read mode %q", s))
	}
}

const (
	DefaultBufferSize     = 4096
	DefaultMaxRequestSize = 1 << 20
)

var contentLengthKey = []byte("content-length:")

// ReadOptions controls ReadRequest
type ReadOptions struct {
	Mode           ReadMode
	BufferSize     int
	MaxRequestSize int
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.MaxRequestSize <= 0 {
		o.MaxRequestSize = DefaultMaxRequestSize
	}
	return o
}

// ReadRequest receives the raw bytes of one request from r.
//
// A first read that yields no data is a receive failure. In complete mode a
// peer that closes before the header boundary hands over what arrived; one
// that closes before a declared body is complete produces IncompleteRequest.
func ReadRequest(r io.Reader, opts ReadOptions) ([]byte, error) {
	opts = opts.withDefaults()

	if opts.Mode == ReadModeSingle {
		buf := make([]byte, opts.BufferSize)
		n, err := r.Read(buf)
		if n <= 0 {
			return nil, receiveFailure(err)
		}
		return buf[:n], nil
	}

	buffer := make([]byte, 0, opts.BufferSize)
	readBuf := make([]byte, opts.BufferSize)
	headerSize := 0
	contentLength := -1

	for {
		n, err := r.Read(readBuf)
		if n > 0 {
			if len(buffer)+n > opts.MaxRequestSize {
				return nil, errors.NewProtocolError(
					errors.ProtocolErrorMessageTooLarge,
					fmt.Sprintf("request exceeds %d bytes", opts.MaxRequestSize),
				)
			}
			buffer = append(buffer, readBuf[:n]...)
		}

		if err != nil || n <= 0 {
			if len(buffer) == 0 {
				return nil, receiveFailure(err)
			}
			if !errors.IsTransport(err, errors.TransportErrorConnectionClosed) && err != io.EOF && err != nil {
				return nil, receiveFailure(err)
			}
			// Peer closed with data pending
			if contentLength >= 0 && len(buffer) < headerSize+contentLength {
				return nil, errors.NewProtocolError(
					errors.ProtocolErrorIncompleteRequest,
					"connection closed before complete request received",
				)
			}
			return buffer, nil
		}

		// Look for header separator if we haven't found it yet
		if headerSize == 0 {
			if pos := bytes.Index(buffer, headerSeparator); pos >= 0 {
				headerSize = pos + len(headerSeparator)
				contentLength = parseContentLength(buffer[:headerSize])
				if contentLength > opts.MaxRequestSize-headerSize {
					return nil, errors.NewProtocolError(
						errors.ProtocolErrorMessageTooLarge,
						fmt.Sprintf("declared body of %d bytes exceeds limit", contentLength),
					)
				}
			}
		}

		if headerSize > 0 && len(buffer) >= headerSize+max(contentLength, 0) {
			return buffer, nil
		}
	}
}

func receiveFailure(err error) error {
	if errors.IsType(err, errors.ErrorTransport) {
		return err
	}
	if err == nil || err == io.EOF {
		return errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed before any data was received",
			err,
		)
	}
	return errors.NewTransportError(errors.TransportErrorSocketReadFailure, "receive failed", err)
}

// parseContentLength extracts Content-Length from the header block, or -1
func parseContentLength(headersView []byte) int {
	lines := bytes.Split(headersView, []byte("\n"))
	for _, line := range lines[1:] { // Skip request line
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			break
		}

		if bytes.HasPrefix(bytes.ToLower(line), contentLengthKey) {
			valueStr := strings.TrimSpace(string(line[len(contentLengthKey):]))
			if length, err := strconv.Atoi(valueStr); err == nil && length >= 0 {
				return length
			}
		}
	}
	return -1
}
