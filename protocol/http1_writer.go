package protocol

import (
	"io"
	"strconv"

	"github.com/nczempin/kurai-httpd/errors"
)

// ResponseSize returns the exact number of bytes SerializeResponse produces
func ResponseSize(res *HttpResponse) int {
	size := len(res.Version) + 1 + len(strconv.Itoa(res.StatusCode)) + 1 +
		len(ReasonPhrase(res.StatusCode)) + len(crlf)
	for _, header := range res.Headers {
		size += len(header.Key) + len(header.Value) + 4
	}
	size += len(crlf)
	size += len(res.body)
	return size
}

// SerializeResponse formats a response into a single buffer allocated once
// at its exact size. The body is appended verbatim.
func SerializeResponse(res *HttpResponse) ([]byte, error) {
	if res == nil {
		return nil, errors.NewInvalidArgumentError("nil response")
	}

	size := ResponseSize(res)
	if size < 0 {
		return nil, errors.NewMemoryError("response size overflows")
	}

	buf := make([]byte, 0, size)

	// Status line
	version := res.Version
	if version == "" {
		version = DefaultVersion
	}
	buf = append(buf, version...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(res.StatusCode), 10)
	buf = append(buf, ' ')
	buf = append(buf, ReasonPhrase(res.StatusCode)...)
	buf = append(buf, crlf...)

	// Headers
	for _, header := range res.Headers {
		buf = append(buf, header.Key...)
		buf = append(buf, ": "...)
		buf = append(buf, header.Value...)
		buf = append(buf, crlf...)
	}

	// Blank line
	buf = append(buf, crlf...)

	buf = append(buf, res.body...)
	return buf, nil
}

// SendResponse serializes res and writes it to w, issuing further writes
// after short ones. A write that reports an error or moves no bytes aborts
// the send; success means every byte went out.
func SendResponse(w io.Writer, res *HttpResponse) (int, error) {
	buf, err := SerializeResponse(res)
	if err != nil {
		return 0, err
	}

	totalSent := 0
	for totalSent < len(buf) {
		n, err := w.Write(buf[totalSent:])
		if n > 0 {
			totalSent += n
		}
		if err != nil {
			if errors.IsType(err, errors.ErrorTransport) {
				return totalSent, err
			}
			return totalSent, errors.NewTransportError(
				errors.TransportErrorSocketWriteFailure,
				"write failed",
				err,
			)
		}
		if n <= 0 {
			return totalSent, errors.NewTransportError(
				errors.TransportErrorConnectionClosed,
				"connection closed during write",
				nil,
			)
		}
	}

	return totalSent, nil
}
