package protocol

import (
	"bytes"

	"github.com/nczempin/kurai-httpd/errors"
)

var (
	crlf            = []byte("\r\n")
	headerSeparator = []byte("\r\n\r\n")
)

// ParseRequest turns a raw request buffer into an HttpRequest.
//
// Missing request-line tokens fall back to GET, / and HTTP/1.1. A buffer
// without any CRLF has no request line and yields a MalformedRequestLine
// protocol error. When the header/body boundary is absent the whole remainder
// is treated as header block and the request has no body.
func ParseRequest(buf []byte) (*HttpRequest, error) {
	if len(buf) == 0 {
		return nil, errors.NewInvalidArgumentError("empty request buffer")
	}

	lineEnd := bytes.Index(buf, crlf)
	if lineEnd < 0 {
		return nil, errors.NewProtocolError(
			errors.ProtocolErrorMalformedRequestLine,
			"request line terminator not found",
		)
	}

	req := &HttpRequest{}
	req.Method, req.URI, req.Version = parseRequestLine(buf[:lineEnd])

	// Searching from the request-line CRLF lets an empty header block match
	// the boundary directly.
	boundary := len(buf)
	if pos := bytes.Index(buf[lineEnd:], headerSeparator); pos >= 0 {
		boundary = lineEnd + pos
	}

	headerStart := lineEnd + len(crlf)
	if headerStart < boundary {
		req.Headers = parseHeaderBlock(buf[headerStart:boundary])
	}

	bodyStart := boundary + len(headerSeparator)
	if len(buf)-bodyStart > 0 {
		req.Body = make([]byte, len(buf)-bodyStart)
		copy(req.Body, buf[bodyStart:])
	}

	return req, nil
}

// parseRequestLine splits on runs of spaces and keeps the first three tokens
func parseRequestLine(line []byte) (method, uri, version string) {
	tokens := make([]string, 0, 3)
	for len(tokens) < 3 {
		for len(line) > 0 && line[0] == ' ' {
			line = line[1:]
		}
		if len(line) == 0 {
			break
		}
		end := bytes.IndexByte(line, ' ')
		if end < 0 {
			end = len(line)
		}
		tokens = append(tokens, string(line[:end]))
		line = line[end:]
	}

	method, uri, version = DefaultMethod, DefaultURI, DefaultVersion
	if len(tokens) > 0 {
		method = tokens[0]
	}
	if len(tokens) > 1 {
		uri = tokens[1]
	}
	if len(tokens) > 2 {
		version = tokens[2]
	}
	return method, uri, version
}

// parseHeaderBlock walks CRLF-delimited lines. Lines without a colon are
// skipped, an empty line ends the block.
func parseHeaderBlock(block []byte) HttpHeaders {
	var headers HttpHeaders
	for len(block) > 0 {
		line := block
		next := bytes.Index(block, crlf)
		if next >= 0 {
			line = block[:next]
			block = block[next+len(crlf):]
		} else {
			block = nil
		}

		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}

		value := line[colon+1:]
		for len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
		headers.Add(string(line[:colon]), string(value))
	}
	return headers
}
