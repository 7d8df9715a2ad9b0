package protocol

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nczempin/kurai-httpd/errors"
)

// scriptedReader returns one chunk per Read call, then closeErr
type scriptedReader struct {
	chunks   []string
	closeErr error
	reads    int
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	r.reads++
	if len(r.chunks) == 0 {
		return 0, r.closeErr
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func peerClosed() error {
	return errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed by peer", nil)
}

func TestReadRequest_SingleMode_OneReadOnly(t *testing.T) {
	r := &scriptedReader{chunks: []string{"GET / HTTP/1.1\r\n", "Host: x\r\n\r\n"}}

	raw, err := ReadRequest(r, ReadOptions{Mode: ReadModeSingle})
	require.NoError(t, err)
	require.Equal(t, "GET / HTTP/1.1\r\n", string(raw))
	require.Equal(t, 1, r.reads)
}

func TestReadRequest_SingleMode_TruncatesAtBufferSize(t *testing.T) {
	r := &scriptedReader{chunks: []string{"GET /0123456789 HTTP/1.1\r\n\r\n"}}

	raw, err := ReadRequest(r, ReadOptions{Mode: ReadModeSingle, BufferSize: 8})
	require.NoError(t, err)
	require.Equal(t, "GET /012", string(raw))
}

func TestReadRequest_SingleMode_NothingReceived(t *testing.T) {
	r := &scriptedReader{closeErr: peerClosed()}

	_, err := ReadRequest(r, ReadOptions{Mode: ReadModeSingle})
	require.True(t, errors.IsTransport(err, errors.TransportErrorConnectionClosed), "got %v", err)
}

func TestReadRequest_Complete_ReassemblesSplitHeaders(t *testing.T) {
	r := &scriptedReader{
		chunks:   []string{"GET /sp", "lit HTTP/1.1\r\nHo", "st: x\r", "\n\r\n"},
		closeErr: io.EOF,
	}

	raw, err := ReadRequest(r, ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, "GET /split HTTP/1.1\r\nHost: x\r\n\r\n", string(raw))
	require.Equal(t, 4, r.reads, "must stop once the header block is complete")
}

func TestReadRequest_Complete_WaitsForContentLength(t *testing.T) {
	r := &scriptedReader{
		chunks: []string{
			"POST /u HTTP/1.1\r\ncontent-LENGTH: 10\r\n\r\n",
			"01234",
			"56789",
		},
	}

	raw, err := ReadRequest(r, ReadOptions{BufferSize: 16})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(raw), "\r\n\r\n0123456789"))

	req, err := ParseRequest(raw)
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(req.Body))
}

func TestReadRequest_Complete_IncompleteBody(t *testing.T) {
	r := &scriptedReader{
		chunks:   []string{"POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"},
		closeErr: peerClosed(),
	}

	_, err := ReadRequest(r, ReadOptions{})
	require.True(t, errors.IsProtocol(err, errors.ProtocolErrorIncompleteRequest), "got %v", err)
}

func TestReadRequest_Complete_PeerClosesBeforeBoundary(t *testing.T) {
	r := &scriptedReader{
		chunks:   []string{"GET / HTTP/1.1\r\nHost: x"},
		closeErr: peerClosed(),
	}

	raw, err := ReadRequest(r, ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, "GET / HTTP/1.1\r\nHost: x", string(raw))
}

func TestReadRequest_Complete_NothingReceived(t *testing.T) {
	r := &scriptedReader{closeErr: io.EOF}

	_, err := ReadRequest(r, ReadOptions{})
	require.True(t, errors.IsTransport(err, errors.TransportErrorConnectionClosed), "got %v", err)
}

func TestReadRequest_Complete_ReadFailure(t *testing.T) {
	r := &scriptedReader{
		chunks:   []string{"GET / HT"},
		closeErr: io.ErrUnexpectedEOF,
	}

	_, err := ReadRequest(r, ReadOptions{})
	require.True(t, errors.IsTransport(err, errors.TransportErrorSocketReadFailure), "got %v", err)
}

func TestReadRequest_Complete_TooLarge(t *testing.T) {
	r := &scriptedReader{chunks: []string{strings.Repeat("a", 64), strings.Repeat("b", 64)}}

	_, err := ReadRequest(r, ReadOptions{BufferSize: 64, MaxRequestSize: 100})
	require.True(t, errors.IsProtocol(err, errors.ProtocolErrorMessageTooLarge), "got %v", err)
}

func TestReadRequest_Complete_DeclaredBodyTooLarge(t *testing.T) {
	r := &scriptedReader{chunks: []string{"POST / HTTP/1.1\r\nContent-Length: 5000\r\n\r\n"}}

	_, err := ReadRequest(r, ReadOptions{MaxRequestSize: 1024})
	require.True(t, errors.IsProtocol(err, errors.ProtocolErrorMessageTooLarge), "got %v", err)
	require.Equal(t, 1, r.reads)
}

func TestParseReadMode(t *testing.T) {
	mode, err := ParseReadMode("single")
	require.NoError(t, err)
	require.Equal(t, ReadModeSingle, mode)

	mode, err = ParseReadMode("Complete")
	require.NoError(t, err)
	require.Equal(t, ReadModeComplete, mode)

	_, err = ParseReadMode("twice")
	require.True(t, errors.IsType(err, errors.ErrorInvalidArgument))
}
